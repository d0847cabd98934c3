package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Source call outcomes used as the "outcome" label
const (
	OutcomeSuccess     = "success"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
	OutcomeCircuitOpen = "circuit_open"
)

// SourceMetrics holds the Prometheus collectors for provider calls and aggregation
type SourceMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	eventsReturned  *prometheus.CounterVec
	duplicates      prometheus.Counter
}

// NewSourceMetrics creates the collectors and registers them on reg.
// A nil registerer leaves them unregistered.
func NewSourceMetrics(reg prometheus.Registerer) *SourceMetrics {
	m := &SourceMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventfinder",
			Subsystem: "source",
			Name:      "requests_total",
			Help:      "Number of provider requests by source, operation and outcome",
		}, []string{"source", "operation", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventfinder",
			Subsystem: "source",
			Name:      "request_duration_seconds",
			Help:      "Time spent waiting on provider responses",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source", "operation"}),
		eventsReturned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventfinder",
			Subsystem: "source",
			Name:      "events_total",
			Help:      "Normalized events returned by each source",
		}, []string{"source"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventfinder",
			Subsystem: "aggregator",
			Name:      "duplicates_dropped_total",
			Help:      "Events dropped by cross-source deduplication",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.requestDuration, m.eventsReturned, m.duplicates)
	}
	return m
}

// ObserveRequest records one provider call.
func (m *SourceMetrics) ObserveRequest(source, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(source, operation, outcome).Inc()
	m.requestDuration.WithLabelValues(source, operation).Observe(elapsed.Seconds())
}

// AddEvents records how many events a source contributed.
func (m *SourceMetrics) AddEvents(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsReturned.WithLabelValues(source).Add(float64(n))
}

// AddDuplicates records events removed by deduplication.
func (m *SourceMetrics) AddDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicates.Add(float64(n))
}

// RequestCounter exposes the request counter for tests.
func (m *SourceMetrics) RequestCounter() *prometheus.CounterVec {
	return m.requests
}

// DuplicatesCounter exposes the dedup counter for tests.
func (m *SourceMetrics) DuplicatesCounter() prometheus.Counter {
	return m.duplicates
}

// EventsCounter exposes the per-source event counter for tests.
func (m *SourceMetrics) EventsCounter() *prometheus.CounterVec {
	return m.eventsReturned
}
