package api

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus collectors the ingress and admin routes
// update, modeled on pkg/observability/prometheus.go's per-component
// counter/gauge registration style but scoped to this server's own
// concerns instead of a generic metric-naming framework.
type Metrics struct {
	RequestsAdmitted  prometheus.Counter
	RequestsRejected  prometheus.Counter
	ScheduleRuns       prometheus.Counter
	ScheduleFailures   prometheus.Counter
	ScheduleDuration   prometheus.Histogram
	PendingRequests    prometheus.Gauge
	DispatcherTick     prometheus.Gauge
	DispatcherExecuted prometheus.Counter
	DispatcherErrors   prometheus.Counter
}

// NewMetrics creates and registers the server's metrics against registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carbonshift",
			Subsystem: "requests",
			Name:      "admitted_total",
			Help:      "Requests accepted into the pending pool.",
		}),
		RequestsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carbonshift",
			Subsystem: "requests",
			Name:      "rejected_total",
			Help:      "Requests rejected at admission (invalid deadline, malformed body).",
		}),
		ScheduleRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carbonshift",
			Subsystem: "schedule",
			Name:      "runs_total",
			Help:      "Scheduling cycles executed.",
		}),
		ScheduleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carbonshift",
			Subsystem: "schedule",
			Name:      "failures_total",
			Help:      "Scheduling cycles that ended infeasible or errored.",
		}),
		ScheduleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carbonshift",
			Subsystem: "schedule",
			Name:      "duration_seconds",
			Help:      "Wall-clock time spent solving a scheduling cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		PendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carbonshift",
			Subsystem: "requests",
			Name:      "pending",
			Help:      "Requests currently waiting in the pool.",
		}),
		DispatcherTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carbonshift",
			Subsystem: "dispatcher",
			Name:      "current_tick",
			Help:      "The dispatcher's current position on the slot clock.",
		}),
		DispatcherExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carbonshift",
			Subsystem: "dispatcher",
			Name:      "executed_total",
			Help:      "Slot-queue entries handed to an executor.",
		}),
		DispatcherErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carbonshift",
			Subsystem: "dispatcher",
			Name:      "errors_total",
			Help:      "Executor errors observed by the dispatcher.",
		}),
	}

	registry.MustRegister(
		m.RequestsAdmitted,
		m.RequestsRejected,
		m.ScheduleRuns,
		m.ScheduleFailures,
		m.ScheduleDuration,
		m.PendingRequests,
		m.DispatcherTick,
		m.DispatcherExecuted,
		m.DispatcherErrors,
	)
	return m
}
