package dbv

import (
	"log"

	"github.com/klauspost/cpuid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	log.Printf("dbv: running on %s, POPCNT=%v, BMI1=%v", cpuid.CPU.BrandName,
		cpuid.CPU.Has(cpuid.POPCNT), cpuid.CPU.Has(cpuid.BMI1))
}

var (
	insertDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dbv_insert_duration_seconds",
			Help:    "Duration of Tree.Insert calls",
			Buckets: []float64{1e-7, 1e-6, 1e-5, 1e-4, 1e-3, 1e-2},
		},
	)

	redistributionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbv_redistributions_total",
			Help: "Total number of leaf/node redistributions performed",
		},
		[]string{"level"},
	)

	rootSplitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dbv_root_splits_total",
			Help: "Total number of root splits (height increases)",
		},
	)

	treeHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dbv_tree_height",
			Help: "Current height of the tree",
		},
	)
)
