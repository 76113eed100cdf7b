package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

// Metrics holds the Prometheus collectors of the relay.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessionsActive   prometheus.Gauge
	sessionsTotal    prometheus.Counter
	broadcastsTotal  *prometheus.CounterVec
	deliveryFailures prometheus.Counter
	acceptErrors     prometheus.Counter
	poolWorkers      prometheus.Gauge
	poolCallerRuns   prometheus.Counter
	processRSS       prometheus.Gauge
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently registered",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of accepted sessions",
		}),
		broadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of broadcasts by kind",
		}, []string{"kind"}),
		deliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of per-recipient delivery failures",
		}),
		acceptErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Total number of accept failures while running",
		}),
		poolWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_workers",
			Help:      "Number of live dispatch pool workers",
		}),
		poolCallerRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_caller_runs_total",
			Help:      "Tasks run inline by the submitter because the pool was saturated",
		}),
		processRSS: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident set size sampled by the telemetry worker",
		}),
	}
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsTotal.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) Broadcast(kind string) {
	if m == nil {
		return
	}
	m.broadcastsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) DeliveryFailed() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}

func (m *Metrics) AcceptFailed() {
	if m == nil {
		return
	}
	m.acceptErrors.Inc()
}

func (m *Metrics) SetPoolWorkers(n int) {
	if m == nil {
		return
	}
	m.poolWorkers.Set(float64(n))
}

func (m *Metrics) CallerRan() {
	if m == nil {
		return
	}
	m.poolCallerRuns.Inc()
}

func (m *Metrics) SetProcessRSS(bytes uint64) {
	if m == nil {
		return
	}
	m.processRSS.Set(float64(bytes))
}
