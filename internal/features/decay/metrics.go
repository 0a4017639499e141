package decay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_decay_runs_total",
		Help: "Decay job runs by result",
	}, []string{"result"})

	usersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_decay_users_total",
		Help: "Decay candidates by outcome",
	}, []string{"outcome"})

	pointsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orbit_decay_points_removed_total",
		Help: "Orbit points removed by the decay job",
	})
)
