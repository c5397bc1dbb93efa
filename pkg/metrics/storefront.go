package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// Storefront collects session, checkout and storage metrics. A nil
// *Storefront is valid and records nothing.
type Storefront struct {
	mutations           *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	orders              *prometheus.CounterVec
	payment             *prometheus.HistogramVec
	activeSessions      prometheus.Gauge
	breakerState        *prometheus.GaugeVec
}

// NewStorefront registers the storefront metrics on reg.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	m := &Storefront{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_mutations_total",
			Help:      "Collection mutations applied to shopping sessions.",
		}, []string{"collection", "op"}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Writes to the session store that failed.",
		}, []string{"key"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_transitions_total",
			Help:      "Checkout state machine transitions.",
		}, []string{"from", "to"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders appended to the order log.",
		}, []string{"method", "status"}),
		payment: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_duration_seconds",
			Help:      "Time from confirm to payment completion.",
			Buckets:   []float64{0.5, 1, 2, 3, 4, 5, 10},
		}, []string{"method", "outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_breaker_state",
			Help:      "Storage circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),
	}
	reg.MustRegister(m.mutations, m.persistenceFailures, m.transitions, m.orders, m.payment, m.activeSessions, m.breakerState)
	return m
}

// IncMutation counts one collection mutation.
func (m *Storefront) IncMutation(collection, op string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(collection), normalizeLabel(op)).Inc()
}

// IncPersistenceFailure counts one failed write for key.
func (m *Storefront) IncPersistenceFailure(key string) {
	if m == nil || m.persistenceFailures == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(normalizeLabel(key)).Inc()
}

// IncTransition counts a checkout state change.
func (m *Storefront) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncOrder counts an appended order.
func (m *Storefront) IncOrder(method, status string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(method), normalizeLabel(status)).Inc()
}

// ObservePayment records how long a payment took to settle.
func (m *Storefront) ObservePayment(method, outcome string, d time.Duration) {
	if m == nil || m.payment == nil {
		return
	}
	m.payment.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Observe(d.Seconds())
}

// SetActiveSessions publishes the in-memory session count.
func (m *Storefront) SetActiveSessions(n int) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// SetBreakerState publishes a breaker state by its gobreaker name.
func (m *Storefront) SetBreakerState(name, state string) {
	if m == nil || m.breakerState == nil {
		return
	}
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(normalizeLabel(name)).Set(v)
}
