// Package metrics exports execution events as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
)

const namespace = "permgraph"

// Metrics holds the collectors fed from the event bus.
type Metrics struct {
	denials             *prometheus.CounterVec
	faults              *prometheus.CounterVec
	operations          *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	activeSubscriptions *prometheus.GaugeVec
	subscriptionEvents  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_denials_total",
			Help:      "fields withheld by their permission checks.",
		}, []string{"object", "field", "kind"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_faults_total",
			Help:      "fields that failed in argument coercion, their resolver or result coercion.",
		}, []string{"object", "field", "kind"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "executed GraphQL operations.",
		}, []string{"type", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "distribution in seconds of GraphQL operation execution time.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"type"}),
		activeSubscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "open subscription streams.",
		}, []string{"field"}),
		subscriptionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_events_total",
			Help:      "events delivered on finished subscription streams.",
		}, []string{"field"}),
	}
	for _, c := range []prometheus.Collector{
		m.denials, m.faults, m.operations, m.operationDuration, m.activeSubscriptions, m.subscriptionEvents,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Attach feeds m from bus. The returned func detaches it.
func (m *Metrics) Attach(bus *eventbus.Bus) (unsubscribe func()) {
	offs := []func(){
		eventbus.On(bus, func(_ context.Context, e events.FieldDenied) {
			m.denials.WithLabelValues(e.ObjectType, e.Field, e.Kind).Inc()
		}),
		eventbus.On(bus, func(_ context.Context, e events.FieldFault) {
			m.faults.WithLabelValues(e.ObjectType, e.Field, e.Kind).Inc()
		}),
		eventbus.On(bus, func(_ context.Context, e events.GraphQLFinish) {
			outcome := "ok"
			if len(e.Errors) > 0 {
				outcome = "error"
			}
			m.operations.WithLabelValues(e.OperationType, outcome).Inc()
			m.operationDuration.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.On(bus, func(_ context.Context, e events.SubscriptionStart) {
			m.activeSubscriptions.WithLabelValues(e.Field).Inc()
		}),
		eventbus.On(bus, func(_ context.Context, e events.SubscriptionFinish) {
			m.activeSubscriptions.WithLabelValues(e.Field).Dec()
			m.subscriptionEvents.WithLabelValues(e.Field).Add(float64(e.Events))
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
