package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OnboardingConflicts counts onboarding attempts that resolved to an already
// existing user instead of creating rows.
var OnboardingConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "onboarding_conflict_total",
	Help: "Onboarding attempts short-circuited by an existing kc_sub",
})

// TofuRuns counts external tofu invocations by command and outcome.
var TofuRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tofu_runs_total",
	Help: "OpenTofu process invocations",
}, []string{"command", "outcome"})
