package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// hazard-awareness engine.
type Metrics struct {
	EventsConsumed  prometheus.Counter
	IntentsEmitted  prometheus.Counter
	EventsDropped   *prometheus.CounterVec // labels: reason={malformed,duplicate,out_of_radius,no_transition}
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Road-path collaborator metrics.
	RoadPathRequests *prometheus.CounterVec // labels: outcome={success,error,fallback}
	RoadPathCache    *prometheus.CounterVec // labels: result={hit,miss}
	RoadPathDuration prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		EventsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "feed_events_consumed_total",
			Help:      "Total events read from the hazard change feed.",
		}),
		IntentsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "notification_intents_emitted_total",
			Help:      "Total notification intents published to the sink.",
		}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "feed_events_dropped_total",
			Help:      "Feed events that produced no notification, by reason.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_engine",
			Name:      "pipeline_running",
			Help:      "1 when the event pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_engine",
			Name:      "batch_size",
			Help:      "Number of events per batch extracted from the feed.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_engine",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-evaluate-emit cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RoadPathRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "road_path_requests_total",
			Help:      "Routing service requests by outcome.",
		}, []string{"outcome"}),
		RoadPathCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "road_path_cache_total",
			Help:      "Road-path cache lookups by result.",
		}, []string{"result"}),
		RoadPathDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_engine",
			Name:      "road_path_duration_seconds",
			Help:      "Routing service request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	prometheus.MustRegister(
		m.EventsConsumed,
		m.IntentsEmitted,
		m.EventsDropped,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.RoadPathRequests,
		m.RoadPathCache,
		m.RoadPathDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		EventsConsumed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_engine", Name: "feed_events_consumed_total"}),
		IntentsEmitted:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_engine", Name: "notification_intents_emitted_total"}),
		EventsDropped:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_engine", Name: "feed_events_dropped_total"}, []string{"reason"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_engine", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hazard_engine", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hazard_engine", Name: "batch_processing_duration_seconds"}),
		RoadPathRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_engine", Name: "road_path_requests_total"}, []string{"outcome"}),
		RoadPathCache:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_engine", Name: "road_path_cache_total"}, []string{"result"}),
		RoadPathDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hazard_engine", Name: "road_path_duration_seconds"}),
	}
}
