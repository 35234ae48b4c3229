package heartbeat

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"

	resultDelivered = "delivered"
	resultFailed    = "failed"
)

var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_heartbeat_attempts_total",
			Help: "Total number of heartbeat delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)

	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_heartbeat_cycles_total",
			Help: "Total number of completed delivery phases by result.",
		},
		[]string{"result"},
	)

	attemptDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "beacon_heartbeat_attempt_duration_seconds",
			Help:    "Duration of individual heartbeat delivery attempts.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(attemptsTotal)
	prometheus.MustRegister(cyclesTotal)
	prometheus.MustRegister(attemptDuration)
}
