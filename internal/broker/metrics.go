package broker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_tool_invocations_total",
		Help: "Tool invocations handled by the broker, by tool and outcome.",
	}, []string{"tool", "status"})

	toolInvocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "broker_tool_invocation_duration_seconds",
		Help:    "Duration of tool invocations including the backend round trip.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})
)
