// Package bus connects the link Manager to the MQTT broker.
//
// The Dispatcher subscribes to the inbound topics and routes each message
// to the Manager:
//
//	{prefix}/channel/{uid}/state     {"value": 55}
//	{prefix}/channel/{uid}/command   {"value": "UP"}
//	{prefix}/channel/{uid}/trigger   {"event": "PRESSED"}
//	{prefix}/item/{name}/command     {"value": "ON"}
//	{prefix}/item/{name}/state       {"value": "ON"}
//
// The Publisher is the Manager's callback factory. Every value a profile
// emits is published as an OutboundMessage carrying the link ID and the
// resolved profile type:
//
//	{prefix}/out/item/{name}/command
//	{prefix}/out/item/{name}/state      (retained)
//	{prefix}/out/channel/{uid}/command
//
// Usage:
//
//	pub := bus.NewPublisher(client, client.Topics())
//	manager := link.NewManager(repo, registry, pub)
//	d := bus.NewDispatcher(client, client.Topics(), manager)
//	if err := d.Start(ctx); err != nil {
//	    return err
//	}
//	defer d.Stop()
package bus
