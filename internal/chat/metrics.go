package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_provider_calls_total",
		Help: "Chat completion calls by provider, model, and outcome.",
	}, []string{"provider", "model", "status"})

	providerCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_provider_call_duration_seconds",
		Help:    "Duration of chat completion calls.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"provider"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_tool_calls_total",
		Help: "Tool invocations made on behalf of chat turns, by tool and outcome.",
	}, []string{"tool", "status"})

	activeTurns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_turns",
		Help: "Chat turns currently in flight.",
	})
)
