package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var evalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "warden_evaluation_duration_sec",
	Help: "Total duration of message evaluation",
})

var evalCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_evaluations",
	Help: "Number of evaluations, by resulting action",
}, []string{"action"})

var evalTimeoutCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_evaluation_timeouts",
	Help: "Number of evaluations which exceeded their budget and failed open",
})

var ruleMatchCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_rule_matches",
	Help: "Number of rule matches, by rule name",
}, []string{"rule"})

var detectorFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_detector_failures",
	Help: "Number of detector executions which panicked and scored zero",
}, []string{"detector"})

var actionExecuteCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_actions_executed",
	Help: "Number of enforcement actions handed to the executor",
}, []string{"action"})

var actionExecuteErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_action_execute_errors",
	Help: "Number of executor failures (logged, never fatal to the decision)",
})
