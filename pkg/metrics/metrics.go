package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campushub_auth", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campushub_auth", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// AuthAttempts counts authentication calls by method (password|federated) and outcome.
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campushub_auth", Name: "auth_attempts_total", Help: "Authentication attempts by method and outcome."},
		[]string{"method", "outcome"},
	)
	HandoffPending = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "campushub_auth", Name: "handoff_pending", Help: "Session handoff entries waiting to be polled."},
	)
	// HandoffPolls counts poll results: pending, exchanged or failed.
	HandoffPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campushub_auth", Name: "handoff_polls_total", Help: "Session handoff polls by result."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(HandoffPending)
	reg.MustRegister(HandoffPolls)
}
