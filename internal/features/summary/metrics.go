package summary

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// discrepancies считает сводки, где кешированный баланс не сошёлся с журналом.
var discrepancies = promauto.NewCounter(prometheus.CounterOpts{
	Name: "orbit_summary_discrepancies_total",
	Help: "Summaries where the cached balance differed from the ledger total",
})
