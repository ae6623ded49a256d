package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adsledger"

var (
	// Registry holds the service's collectors; it is what /metrics exposes.
	Registry = prometheus.NewRegistry()

	SessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rewards",
		Name:      "sessions_started_total",
		Help:      "Ad sessions started.",
	})

	SessionsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rewards",
		Name:      "sessions_completed_total",
		Help:      "Ad sessions completed and rewarded.",
	})

	RewardAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rewards",
		Name:      "amount_total",
		Help:      "Sum of rewards credited to available balances.",
	})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rewards",
		Name:      "rate_limited_total",
		Help:      "Session starts rejected by cooldown or daily cap.",
	}, []string{"reason"})

	WithdrawalsRequested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "withdrawals",
		Name:      "requested_total",
		Help:      "Withdrawal requests accepted into pending.",
	})

	WithdrawalsReviewed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "withdrawals",
		Name:      "reviewed_total",
		Help:      "Withdrawal review decisions.",
	}, []string{"decision"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests handled.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SessionsStarted,
		SessionsCompleted,
		RewardAmount,
		RateLimited,
		WithdrawalsRequested,
		WithdrawalsReviewed,
		httpRequests,
		httpDuration,
	)
}

// ObserveHTTP records one handled request.
func ObserveHTTP(method, route string, status int, seconds float64) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
