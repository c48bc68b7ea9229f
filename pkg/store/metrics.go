package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Errors tracks failed store operations by backend and operation
// ("get_rate", "upsert_rate", "get_user", "insert_user", "update_user").
var Errors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fx_store_errors_total",
		Help: "Total number of persistent store operation errors",
	},
	[]string{"backend", "operation"},
)
