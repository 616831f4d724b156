package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	entryDuration *prom.HistogramVec
	entryResults  *prom.CounterVec
	batchDuration *prom.HistogramVec
	batchOutcome  *prom.CounterVec
	batchEntries  *prom.CounterVec
	inFlight      *prom.GaugeVec
}

// NewPrometheusRecorder constructs and registers the render metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.entryDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "lexpub",
			Name:      "entry_render_seconds",
			Help:      "Time to render one entry",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"backend"})
		pr.entryResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "lexpub",
			Name:      "entries_total",
			Help:      "Rendered entries by result",
		}, []string{"backend", "result"})
		pr.batchDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "lexpub",
			Name:      "batch_duration_seconds",
			Help:      "Duration of render batches",
			Buckets:   prom.DefBuckets,
		}, []string{"backend"})
		pr.batchOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "lexpub",
			Name:      "batches_total",
			Help:      "Render batches by outcome",
		}, []string{"backend", "outcome"})
		pr.batchEntries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "lexpub",
			Name:      "batch_entries_total",
			Help:      "Entries assembled into batch output",
		}, []string{"backend"})
		pr.inFlight = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "lexpub",
			Name:      "batches_in_flight",
			Help:      "Batches currently rendering",
		}, []string{"backend"})
		reg.MustRegister(pr.entryDuration, pr.entryResults, pr.batchDuration, pr.batchOutcome, pr.batchEntries, pr.inFlight)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveEntry(backend string, d time.Duration, err error) {
	if p == nil || p.entryDuration == nil {
		return
	}
	p.entryDuration.WithLabelValues(backend).Observe(d.Seconds())
	result := "success"
	if err != nil {
		result = "failed"
	}
	p.entryResults.WithLabelValues(backend, result).Inc()
}

func (p *PrometheusRecorder) ObserveBatch(backend string, entries int, d time.Duration, cancelled bool) {
	if p == nil || p.batchDuration == nil {
		return
	}
	p.batchDuration.WithLabelValues(backend).Observe(d.Seconds())
	outcome := "completed"
	if cancelled {
		outcome = "cancelled"
	}
	p.batchOutcome.WithLabelValues(backend, outcome).Inc()
	p.batchEntries.WithLabelValues(backend).Add(float64(entries))
}

func (p *PrometheusRecorder) SetInFlight(backend string, n int) {
	if p == nil || p.inFlight == nil {
		return
	}
	p.inFlight.WithLabelValues(backend).Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves the metrics in reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

var _ Recorder = (*PrometheusRecorder)(nil)
