package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mechanic_search_seconds",
		Help:    "Time spent answering a nearby-mechanic search.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	candidateCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mechanic_search_candidates",
		Help:    "Number of candidates returned per search.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})
)
