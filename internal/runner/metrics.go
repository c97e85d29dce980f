package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cronside",
		Subsystem: "runner",
		Name:      "runs_started_total",
		Help:      "Attempt sequences started, per job.",
	}, []string{"job"})

	runsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cronside",
		Subsystem: "runner",
		Name:      "runs_completed_total",
		Help:      "Attempt sequences finished, per job and final status.",
	}, []string{"job", "status"})

	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cronside",
		Subsystem: "runner",
		Name:      "attempts_total",
		Help:      "Individual execution attempts, per job.",
	}, []string{"job"})
)
