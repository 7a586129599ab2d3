package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_checkins_total",
			Help: "Total number of check-in attempts by outcome",
		},
		[]string{"result"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rollcall_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

// Check-in outcome labels.
const (
	CheckinOK          = "ok"
	CheckinDuplicate   = "duplicate"
	CheckinUnknownCode = "unknown_code"
	CheckinError       = "error"
)
