// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts assistant activity
type Metrics struct {
	LLMCalls *prometheus.CounterVec
	Actions  *prometheus.CounterVec
}

// NewMetrics registers the assistant counters with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LLMCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_llm_calls_total",
			Help: "LLM completions requested by the assistant, by outcome.",
		}, []string{"outcome"}),
		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_actions_total",
			Help: "Agent actions by kind and outcome.",
		}, []string{"action", "outcome"}),
	}
}

func (m *Metrics) llmCall(outcome string) {
	if m != nil {
		m.LLMCalls.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) action(kind, outcome string) {
	if m != nil {
		m.Actions.WithLabelValues(kind, outcome).Inc()
	}
}
