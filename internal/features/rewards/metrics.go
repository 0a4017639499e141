package rewards

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// awardOutcomes считает попытки начисления.
	// outcome: awarded, capped, limit_exceeded, unknown_action, error
	awardOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_award_outcomes_total",
			Help: "Award engine invocations by action type and outcome",
		},
		[]string{"action", "outcome"},
	)

	pointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_points_awarded_total",
			Help: "Orbit points written to the ledger by the award engine",
		},
		[]string{"action"},
	)

	gateDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_gate_denials_total",
			Help: "Requests rejected by the credibility gate or the pairwise limiter",
		},
		[]string{"gate"},
	)
)
