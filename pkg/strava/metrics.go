package strava

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stridelake_strava_api_requests_total",
		Help: "Strava API requests by endpoint and status code",
	}, []string{"endpoint", "status"})

	AthletesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stridelake_sync_athletes_processed_total",
		Help: "Athletes processed by the activity sync, by result",
	}, []string{"result"})

	ActivitiesUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stridelake_sync_activities_upserted_total",
		Help: "Activities written by the activity sync",
	})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stridelake_sync_duration_seconds",
		Help:    "Duration of a full activity sync",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	LastSyncTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stridelake_sync_last_completed_timestamp_seconds",
		Help: "Unix time of the last completed activity sync",
	})
)
