package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	latencyBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}

	hoursScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghscan_ingest_hours_total",
		Help: "archive hours processed, by outcome (ok, skipped, failed)",
	}, []string{"outcome"})
	recordsSeen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghscan_ingest_records_total",
		Help: "records read from the archive, by result (delivered, filtered)",
	}, []string{"result"})
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghscan_ingest_fetch_duration_seconds",
		Help:    "time to obtain one archive hour including retries",
		Buckets: latencyBuckets,
	}, []string{"mode"})
	fetchRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghscan_ingest_fetch_retries_total",
		Help: "download attempts that were retried",
	}, []string{"mode"})
	cacheResident = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghscan_ingest_cache_resident",
		Help: "prefetched hours resident or in flight",
	})
	poolQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghscan_ingest_pool_queue_depth",
		Help: "prefetch jobs waiting for a worker",
	})
)
