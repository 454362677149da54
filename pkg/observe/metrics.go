package observe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sendahq/senda/pkg/flow"
)

// Metrics holds the engine's Prometheus collectors. Node ids and action names
// are bounded by the registered definitions, so they are safe label values;
// workflow ids are not and are deliberately absent.
type Metrics struct {
	visits   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics builds and registers the collectors on reg. A nil reg falls back
// to the process-global default registerer. Registering the same collectors
// twice panics, as is usual for Prometheus.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		visits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "senda_node_visits_total",
				Help: "Number of times workflows entered a node.",
			},
			[]string{"node", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "senda_action_duration_seconds",
				Help:    "Wall-clock duration of action handler runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action", "status"},
		),
	}
	reg.MustRegister(m.visits, m.duration)
	return m
}

// Hooks returns the lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() flow.Hooks {
	return flow.Hooks{
		OnEnter: func(_ context.Context, e *flow.NodeEvent) {
			m.visits.WithLabelValues(e.Node.ID, string(e.Node.Kind)).Inc()
		},
		OnOutcome: func(_ context.Context, e *flow.ActionEvent) {
			m.duration.WithLabelValues(e.Action, e.Outcome.Status).Observe(e.Duration.Seconds())
		},
	}
}
