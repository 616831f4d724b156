// Package metrics records render batch measurements. Components take a
// Recorder and default to NoopRecorder, so nothing needs nil checks when
// metrics are off.
package metrics

import (
	"time"

	"github.com/FocuswithJustin/lexpub/core/render"
)

// Recorder receives batch and entry measurements. It is the render
// package's Recorder plus the gauges the progress server reports.
type Recorder interface {
	render.Recorder
	SetInFlight(backend string, n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveEntry(string, time.Duration, error)      {}
func (NoopRecorder) ObserveBatch(string, int, time.Duration, bool) {}
func (NoopRecorder) SetInFlight(string, int)                        {}

var _ Recorder = NoopRecorder{}
