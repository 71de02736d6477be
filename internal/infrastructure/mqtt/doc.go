// Package mqtt connects Gray Logic Link to the MQTT broker that carries
// channel and item events.
//
// The client wraps paho.mqtt.golang. It reconnects with exponential
// backoff, restores subscriptions after each reconnect, and keeps a
// retained online/offline status under {prefix}/system/status, with a
// Last Will covering crashes.
//
// Topics builds and parses the link topic tree; see its documentation for
// the layout.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllChannelEvents(), client.QoS(),
//	    func(topic string, payload []byte) error {
//	        route, ok := topics.Parse(topic)
//	        ...
//	    })
package mqtt
