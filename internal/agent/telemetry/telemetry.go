package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/signalpulse/pulse/config"
)

// Telemetry records pipeline metrics. Collectors register once against the
// default prometheus registerer; the echo server exposes them on /metrics.
type Telemetry struct {
	enabled bool
}

var (
	registerOnce sync.Once

	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	adapterFailures *prometheus.CounterVec
	adapterItems    *prometheus.CounterVec
	corpusSize      prometheus.Histogram
	cacheEvents     *prometheus.CounterVec
)

func register() {
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_requests_total",
		Help: "Agent runs by terminal outcome (completed, fallback, error).",
	}, []string{"outcome"})
	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulse_request_duration_seconds",
		Help:    "End-to-end agent run duration.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})
	adapterFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_adapter_failures_total",
		Help: "Source adapter calls that settled as unavailable.",
	}, []string{"adapter"})
	adapterItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_adapter_items_total",
		Help: "Items returned per source adapter before deduplication.",
	}, []string{"adapter"})
	corpusSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulse_corpus_size",
		Help:    "Ranked corpus size after dedup and truncation.",
		Buckets: prometheus.LinearBuckets(0, 4, 10),
	})
	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_cache_events_total",
		Help: "Response cache hits and misses.",
	}, []string{"event"})
}

func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{enabled: cfg.Enabled}
	if t.enabled {
		registerOnce.Do(register)
	}
	return t
}

func (t *Telemetry) RecordRequest(outcome string, elapsed time.Duration) {
	if t == nil || !t.enabled {
		return
	}
	requestsTotal.WithLabelValues(outcome).Inc()
	requestDuration.Observe(elapsed.Seconds())
}

func (t *Telemetry) RecordAdapterFailure(adapter string) {
	if t == nil || !t.enabled {
		return
	}
	adapterFailures.WithLabelValues(adapter).Inc()
}

func (t *Telemetry) RecordAdapterItems(adapter string, count int) {
	if t == nil || !t.enabled {
		return
	}
	adapterItems.WithLabelValues(adapter).Add(float64(count))
}

func (t *Telemetry) RecordCorpusSize(size int) {
	if t == nil || !t.enabled {
		return
	}
	corpusSize.Observe(float64(size))
}

func (t *Telemetry) RecordCacheEvent(event string) {
	if t == nil || !t.enabled {
		return
	}
	cacheEvents.WithLabelValues(event).Inc()
}
