// Package metrics exposes Prometheus counters for pipeline execution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsStarted counts pipeline runs by strategy.
	RunsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quest",
		Name:      "runs_started_total",
		Help:      "Pipeline runs started.",
	}, []string{"strategy"})

	// RunsCompleted counts terminal envelopes by strategy and error flag.
	RunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quest",
		Name:      "runs_completed_total",
		Help:      "Pipeline runs completed.",
	}, []string{"strategy", "result"})

	// StageFailures counts isolated stage failures by stage name.
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quest",
		Name:      "stage_failures_total",
		Help:      "Stage executions that failed or timed out.",
	}, []string{"stage"})

	// ReasoningRounds counts completed reasoning rounds.
	ReasoningRounds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quest",
		Name:      "reasoning_rounds_total",
		Help:      "Reasoning rounds completed.",
	})

	// ReasoningStops counts reasoning loop terminations by stop reason.
	ReasoningStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quest",
		Name:      "reasoning_stops_total",
		Help:      "Reasoning loop terminations.",
	}, []string{"reason"})
)
