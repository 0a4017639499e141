package members

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "orbit_user_cache_lookups_total",
	Help: "Lookups in the user directory cache by result.",
}, []string{"result"})
