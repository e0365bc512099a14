package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	upstreamRequests *prometheus.CounterVec
	cacheReads       *prometheus.CounterVec
	backoffTrips     *prometheus.CounterVec
	snapshotsSent    *prometheus.CounterVec
	fetchLatency     *prometheus.HistogramVec
}

var (
	instance *Recorder
	once     sync.Once
)

// New returns the process-wide Prometheus recorder. Collectors register with
// the default registry exactly once, so repeated calls share one instance.
func New() *Recorder {
	once.Do(func() {
		instance = &Recorder{
			upstreamRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "warboard_upstream_requests_total",
					Help: "Total network requests issued to upstream APIs",
				},
				[]string{"source", "result"},
			),
			cacheReads: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "warboard_cache_reads_total",
					Help: "Cache reads served per source by freshness class",
				},
				[]string{"source", "kind"},
			),
			backoffTrips: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "warboard_backoff_trips_total",
					Help: "Times a source entered its failure cooldown window",
				},
				[]string{"source"},
			),
			snapshotsSent: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "warboard_snapshots_sent_total",
					Help: "Normalized snapshots delivered to downstream sinks",
				},
				[]string{"sink", "source"},
			),
			fetchLatency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "warboard_fetch_duration_seconds",
					Help:    "Duration of upstream fetches in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"source"},
			),
		}
	})
	return instance
}

// RecordRequest records one upstream network request and its result class
// ("ok", "rate_limited", "malformed", "error").
func (r *Recorder) RecordRequest(source, result string) {
	r.upstreamRequests.WithLabelValues(source, result).Inc()
}

// RecordCacheRead records a cache read served to a caller
// (kind: "fresh", "stale", "empty").
func (r *Recorder) RecordCacheRead(source, kind string) {
	r.cacheReads.WithLabelValues(source, kind).Inc()
}

// RecordBackoff records a source tripping into its cooldown window.
func (r *Recorder) RecordBackoff(source string) {
	r.backoffTrips.WithLabelValues(source).Inc()
}

// RecordSnapshot records a snapshot handed to a downstream sink.
func (r *Recorder) RecordSnapshot(sink, source string) {
	r.snapshotsSent.WithLabelValues(sink, source).Inc()
}

// RecordLatency records upstream fetch latency in seconds.
func (r *Recorder) RecordLatency(source string, seconds float64) {
	r.fetchLatency.WithLabelValues(source).Observe(seconds)
}
