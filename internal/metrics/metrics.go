package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chromasky_downloads_total",
			Help: "Total upstream forecast file downloads",
		},
		[]string{"source", "status"},
	)

	DownloadLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chromasky_download_latency_seconds",
			Help:    "Upstream download latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ScoreRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chromasky_score_runs_total",
			Help: "Total composite score computations per event",
		},
		[]string{"event", "status"},
	)

	ScoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chromasky_score_duration_seconds",
			Help:    "Wall time of one full-grid event composite",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	PointQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chromasky_point_queries_total",
			Help: "Total single-point index queries",
		},
		[]string{"event", "status"},
	)
)
