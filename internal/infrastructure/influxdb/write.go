package influxdb

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementProfileEvents      = "profile_events"
	MeasurementProfileResolutions = "profile_resolutions"
)

// ProfileEvent is one value a profile emitted through its callback.
type ProfileEvent struct {
	LinkID    string
	Profile   string
	Direction string
	Value     any
	Time      time.Time
}

// WriteProfileEvent queues a profile_events point. Non-blocking; dropped
// while disconnected.
func (c *Client) WriteProfileEvent(ev ProfileEvent) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newProfileEventPoint(ev))
}

// WriteResolution queues a profile_resolutions point recording which
// profile a link resolved to and how it was chosen.
func (c *Client) WriteResolution(linkID, profile, source string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newResolutionPoint(linkID, profile, source, at))
}

// newProfileEventPoint tags by link, profile and direction. The value is
// always stored as a string field; numeric values are also stored as
// value_num so they can be graphed.
func newProfileEventPoint(ev ProfileEvent) *write.Point {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	fields := map[string]any{"value": fmt.Sprint(ev.Value)}
	if n, ok := numeric(ev.Value); ok {
		fields["value_num"] = n
	}

	return write.NewPoint(MeasurementProfileEvents,
		map[string]string{
			"link_id":   ev.LinkID,
			"profile":   ev.Profile,
			"direction": ev.Direction,
		},
		fields, ts)
}

func newResolutionPoint(linkID, profile, source string, at time.Time) *write.Point {
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(MeasurementProfileResolutions,
		map[string]string{
			"link_id": linkID,
			"source":  source,
		},
		map[string]any{"profile": profile},
		at)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
