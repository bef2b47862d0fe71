package transcriber

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "medscribe"

var (
	decodeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decode_attempts_total",
		Help:      "Inference attempts by outcome (accepted, rejected, error)",
	}, []string{"outcome"})

	segmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_total",
		Help:      "Processed segments by result (accepted, fallback, degraded)",
	}, []string{"result"})

	inferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inference_duration_seconds",
		Help:      "Wall time of one inference call",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)
