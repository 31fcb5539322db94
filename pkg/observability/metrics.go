package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/espalier/pkg/ports"
)

// MetricsSink implements ports.EventSink over Prometheus collectors.
type MetricsSink struct {
	executions *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	suspended  *prometheus.CounterVec
	ended      prometheus.Counter
	failures   *prometheus.CounterVec
}

// NewMetricsSink creates the sink and registers its collectors with the given
// registerer (pass prometheus.DefaultRegisterer for the usual setup).
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	s := &MetricsSink{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_node_executions_total",
				Help: "Total node executions by flow and action kind",
			},
			[]string{"flow_id", "action_kind"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "espalier_node_duration_seconds",
				Help:    "Duration of node executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action_kind"},
		),
		suspended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_node_suspensions_total",
				Help: "Node executions that suspended awaiting input",
			},
			[]string{"flow_id", "action_kind"},
		),
		ended: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "espalier_conversations_ended_total",
				Help: "Conversations terminated by a node",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_node_failures_total",
				Help: "Node executions that reported an error",
			},
			[]string{"flow_id", "action_kind"},
		),
	}
	reg.MustRegister(s.executions, s.durations, s.suspended, s.ended, s.failures)
	return s
}

var _ ports.EventSink = (*MetricsSink)(nil)

// NodeExecuted implements ports.EventSink.
func (s *MetricsSink) NodeExecuted(ev ports.NodeExecution) {
	s.executions.WithLabelValues(ev.FlowID, ev.ActionKind).Inc()
	s.durations.WithLabelValues(ev.ActionKind).Observe(ev.Duration.Seconds())
	if ev.Awaiting {
		s.suspended.WithLabelValues(ev.FlowID, ev.ActionKind).Inc()
	}
	if ev.Ended {
		s.ended.Inc()
	}
	if ev.Err != nil {
		s.failures.WithLabelValues(ev.FlowID, ev.ActionKind).Inc()
	}
}
