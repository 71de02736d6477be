// Package influxdb records profile activity in InfluxDB 2.x.
//
// Two measurements are written:
//   - profile_events: every value a profile emits, tagged by link_id,
//     profile and direction
//   - profile_resolutions: which profile each link resolved to, tagged by
//     link_id and source (configured, advisor or fallback)
//
// Writes go through the non-blocking write API and are batched according
// to influxdb.batch_size and influxdb.flush_interval. Write failures arrive
// asynchronously through SetOnError.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteProfileEvent(influxdb.ProfileEvent{
//	    LinkID: "l-1", Profile: "system:rawbutton-toggle-switch",
//	    Direction: "item_command", Value: "ON",
//	})
package influxdb
