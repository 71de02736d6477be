package main

import (
	"time"

	"github.com/nerrad567/gray-logic-link/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-link/internal/link"
	"github.com/nerrad567/gray-logic-link/internal/profile"
)

// profileEventWriter is the part of *influxdb.Client the recorder uses.
type profileEventWriter interface {
	WriteProfileEvent(ev influxdb.ProfileEvent)
	WriteResolution(linkID, profile, source string, at time.Time)
}

// influxRecorder stores profile emissions and resolutions as points.
type influxRecorder struct {
	w profileEventWriter
}

var (
	_ link.Recorder           = (*influxRecorder)(nil)
	_ link.ResolutionRecorder = (*influxRecorder)(nil)
)

func newInfluxRecorder(w profileEventWriter) *influxRecorder {
	return &influxRecorder{w: w}
}

func (r *influxRecorder) RecordEmission(e link.Emission) {
	r.w.WriteProfileEvent(influxdb.ProfileEvent{
		LinkID:    e.LinkID,
		Profile:   e.Profile.String(),
		Direction: string(e.Direction),
		Value:     e.Value,
		Time:      e.Timestamp,
	})
}

func (r *influxRecorder) RecordResolution(linkID string, uid profile.TypeUID, source profile.Source) {
	r.w.WriteResolution(linkID, uid.String(), string(source), time.Now().UTC())
}
