package main

import (
	"context"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/FocuswithJustin/lexpub/internal/app"
	"github.com/FocuswithJustin/lexpub/internal/logging"
	"github.com/FocuswithJustin/lexpub/internal/metrics"
	"github.com/FocuswithJustin/lexpub/internal/progress"
	"github.com/FocuswithJustin/lexpub/internal/settings"
)

// services holds the optional progress server and metrics of a run.
type services struct {
	recorder metrics.Recorder
	tracker  *progress.Tracker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// startServices starts the progress server when the settings ask for one.
func startServices(ctx context.Context, s *settings.Settings) *services {
	sv := &services{recorder: metrics.NoopRecorder{}, cancel: func() {}}
	if s.Progress.Listen == "" {
		return sv
	}

	var reg *prom.Registry
	if s.Progress.Metrics {
		reg = prom.NewRegistry()
		sv.recorder = metrics.NewPrometheusRecorder(reg)
	}
	hub := progress.NewHub(s.Progress.AllowedOrigins)
	sv.tracker = progress.NewTracker(hub, s.Progress.Interval)

	srvCtx, cancel := context.WithCancel(ctx)
	sv.cancel = cancel
	srv := progress.NewServer(s.Progress.Listen, hub, reg)
	sv.wg.Add(1)
	go func() {
		defer sv.wg.Done()
		if err := srv.ListenAndServe(srvCtx); err != nil {
			logging.Error("progress server stopped", "error", err)
		}
	}()
	return sv
}

// Options returns the app options that connect the run to the services.
func (sv *services) Options() []app.Option {
	opts := []app.Option{app.WithRecorder(sv.recorder)}
	if sv.tracker != nil {
		opts = append(opts, app.WithTracker(sv.tracker))
	}
	return opts
}

// Stop shuts the progress server down and waits for it.
func (sv *services) Stop() {
	sv.cancel()
	sv.wg.Wait()
}
