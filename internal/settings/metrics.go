// SPDX-License-Identifier: MIT

package settings

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No key or collection labels: both are unbounded.
var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settings_operations_total",
		Help: "Total number of settings accessor operations, by operation and outcome.",
	}, []string{"op", "outcome"})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settings_store_duration_seconds",
		Help:    "Latency of record store calls made by the settings accessor.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	loadedCollections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settings_loaded_collections",
		Help: "Number of collections loaded into the registry.",
	})
)

func observeOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
}

func observeStore(op string, start time.Time) {
	storeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
