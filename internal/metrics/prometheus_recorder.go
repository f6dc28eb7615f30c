package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	buildDuration   prom.Histogram
	emitDuration    prom.Histogram
	buildOutcome    *prom.CounterVec
	assetsWritten   prom.Counter
	assetsSkipped   prom.Counter
	emitConcurrency prom.Gauge
	invalidations   prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "bundler",
			Name:      "build_duration_seconds",
			Help:      "Total build duration per run cycle",
			Buckets:   prom.DefBuckets,
		})
		pr.emitDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "bundler",
			Name:      "emit_duration_seconds",
			Help:      "Duration of the asset emission phase",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bundler",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.assetsWritten = prom.NewCounter(prom.CounterOpts{
			Namespace: "bundler",
			Name:      "assets_written_total",
			Help:      "Assets physically written to the output directory",
		})
		pr.assetsSkipped = prom.NewCounter(prom.CounterOpts{
			Namespace: "bundler",
			Name:      "assets_skipped_total",
			Help:      "Asset writes skipped by the write-deduplication cache",
		})
		pr.emitConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "bundler",
			Name:      "emit_concurrency",
			Help:      "Configured bound on simultaneous asset writes",
		})
		pr.invalidations = prom.NewCounter(prom.CounterOpts{
			Namespace: "bundler",
			Name:      "watch_invalidations_total",
			Help:      "File-change notifications observed in watch mode",
		})
		reg.MustRegister(pr.buildDuration, pr.emitDuration, pr.buildOutcome,
			pr.assetsWritten, pr.assetsSkipped, pr.emitConcurrency, pr.invalidations)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveEmitDuration(d time.Duration) {
	if p == nil || p.emitDuration == nil {
		return
	}
	p.emitDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddAssetsWritten(n int) {
	if p == nil || p.assetsWritten == nil {
		return
	}
	p.assetsWritten.Add(float64(n))
}

func (p *PrometheusRecorder) AddAssetsSkipped(n int) {
	if p == nil || p.assetsSkipped == nil {
		return
	}
	p.assetsSkipped.Add(float64(n))
}

func (p *PrometheusRecorder) SetEmitConcurrency(n int) {
	if p == nil || p.emitConcurrency == nil {
		return
	}
	p.emitConcurrency.Set(float64(n))
}

func (p *PrometheusRecorder) IncWatchInvalidations() {
	if p == nil || p.invalidations == nil {
		return
	}
	p.invalidations.Inc()
}
