package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for timemaster.
type Metrics struct {
	registry prometheus.Gatherer

	// Event Bus Metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec

	// Engine Metrics
	Transitions  *prometheus.CounterVec
	SamplerTicks *prometheus.CounterVec
	TickSpacing  *prometheus.HistogramVec
	LapsRecorded prometheus.Counter
	Finished     prometheus.Counter

	// Render Loop Metrics
	FrameDuration prometheus.Histogram
	Frames        prometheus.Counter

	// Notification Metrics
	Notifications *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
)

// InitMetrics registers all metrics with registry.
// Pass a fresh prometheus.NewRegistry() in tests to avoid duplicate registration.
func InitMetrics(registry *prometheus.Registry) *Metrics {
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if registry != nil {
		reg = registry
		gatherer = registry
	}

	// Sampler spacing sits around the configured interval (16ms-200ms),
	// so the buckets concentrate between 1ms and 1s.
	spacingBuckets := []float64{
		0.001, 0.002, 0.005, 0.01, 0.016, 0.025, 0.05,
		0.1, 0.2, 0.25, 0.5, 1,
	}

	// Frame composition is pure math plus rasterization.
	frameBuckets := []float64{
		0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01,
	}

	m := &Metrics{
		registry: gatherer,

		EventsPublished: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "timemaster_events_published_total",
				Help: "Total number of events published to the bus",
			},
			[]string{"bus", "event_type"},
		),

		EventsDropped: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "timemaster_events_dropped_total",
				Help: "Total number of events dropped because a subscriber buffer was full",
			},
			[]string{"bus", "event_type"},
		),

		Transitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "timemaster_state_transitions_total",
				Help: "State transitions per engine",
			},
			[]string{"engine", "from", "to"},
		),

		SamplerTicks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "timemaster_sampler_ticks_total",
				Help: "Sampler callbacks that updated engine state",
			},
			[]string{"engine"},
		),

		TickSpacing: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timemaster_sampler_tick_spacing_seconds",
				Help:    "Measured wall-clock time between consecutive sampler ticks",
				Buckets: spacingBuckets,
			},
			[]string{"engine"},
		),

		LapsRecorded: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "timemaster_laps_recorded_total",
				Help: "Stopwatch laps captured",
			},
		),

		Finished: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "timemaster_countdowns_finished_total",
				Help: "Countdowns that reached zero",
			},
		),

		FrameDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "timemaster_frame_compose_duration_seconds",
				Help:    "Time taken to compose one clock face frame",
				Buckets: frameBuckets,
			},
		),

		Frames: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "timemaster_frames_total",
				Help: "Clock face frames produced by the render loop",
			},
		),

		Notifications: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "timemaster_notifications_total",
				Help: "Finished notifications by emitter and result",
			},
			[]string{"emitter", "result"},
		),
	}

	defaultMetrics = m
	return m
}

// Default returns the default metrics instance.
// If InitMetrics hasn't been called, it will initialize with the default registry.
func Default() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics(nil)
	}
	return defaultMetrics
}

// Handler serves the metrics registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Observe records the elapsed time in seconds to the given histogram.
func (t *Timer) Observe(histogram prometheus.Observer) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Elapsed returns the time elapsed since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
