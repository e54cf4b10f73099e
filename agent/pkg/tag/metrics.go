package tag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	stageGenerate   = "generate"
	stageSynthesize = "synthesize"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stridelake_tag_requests_total",
			Help: "Total number of TAG requests by outcome",
		},
		[]string{"outcome"},
	)

	AttemptsPerRequest = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stridelake_tag_attempts_per_request",
			Help:    "Number of generation attempts made per TAG request",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stridelake_tag_failures_total",
			Help: "Total number of transient TAG failures by kind",
		},
		[]string{"kind"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stridelake_tag_model_call_duration_seconds",
			Help:    "Duration of language-model calls by stage",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"stage"},
	)
)
