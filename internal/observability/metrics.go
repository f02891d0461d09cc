package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"workqueue"
)

// Metrics exports a WorkQueue's Stat as Prometheus gauges plus counters
// for submission and dead-letter volume. cmd/server samples Stat on a
// timer and calls Observe; the core workqueue package itself never
// imports Prometheus.
type Metrics struct {
	available prometheus.Gauge
	current   prometheus.Gauge
	submitted prometheus.Counter
	deadLetters prometheus.Counter
	apiRequests *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		available: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "workqueue_available_workers",
			Help: "Idle workers in the pool.",
		}),
		current: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "workqueue_current_workers",
			Help: "Live workers in the pool.",
		}),
		submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workqueue_submitted_total",
			Help: "Work items submitted to the queue.",
		}),
		deadLetters: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workqueue_dead_letters_total",
			Help: "Work items that panicked and were recorded to the dead-letter store.",
		}),
		apiRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workqueue_api_requests_total",
			Help: "Admin API requests by route and status code.",
		}, []string{"route", "status"}),
	}
}

// Observe records a Stat snapshot. Call with the queue's lock held,
// matching Stat's own locking contract.
func (m *Metrics) Observe(st workqueue.Stat) {
	m.available.Set(float64(st.Available))
	m.current.Set(float64(st.Current))
}

func (m *Metrics) IncSubmitted()  { m.submitted.Inc() }
func (m *Metrics) IncDeadLetter() { m.deadLetters.Inc() }

func (m *Metrics) ObserveAPIRequest(route, status string) {
	m.apiRequests.WithLabelValues(route, status).Inc()
}
