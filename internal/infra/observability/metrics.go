package observability

import (
	"time"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	backendErrors   *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	pointsAwarded   *prometheus.CounterVec
	rewardsClaimed  prometheus.Counter
	webhookEvents   *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ob_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ob_backend_errors_total",
				Help: "Total errors from the backend service.",
			},
			[]string{"component"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ob_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ob_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		pointsAwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ob_points_awarded_total",
				Help: "Total engagement points awarded.",
			},
			[]string{"reason"},
		),
		rewardsClaimed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ob_rewards_claimed_total",
				Help: "Total rewards redeemed.",
			},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ob_webhook_events_total",
				Help: "Total webhook requests by kind.",
			},
			[]string{"kind"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ob_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrBackendError increments the backend error counter.
func (m *Metrics) IncrBackendError(component string) {
	m.backendErrors.WithLabelValues(component).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordPointsAwarded records engagement points granted for a reason.
func (m *Metrics) RecordPointsAwarded(reason string, points int) {
	m.pointsAwarded.WithLabelValues(reason).Add(float64(points))
}

// IncrRewardClaimed increments the redemption counter.
func (m *Metrics) IncrRewardClaimed() {
	m.rewardsClaimed.Inc()
}

// IncrWebhookEvent increments the webhook counter for a request kind.
func (m *Metrics) IncrWebhookEvent(kind string) {
	m.webhookEvents.WithLabelValues(kind).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// Snapshot returns the aggregate counters served by GET /v1/metrics/app.
func (m *Metrics) Snapshot() *domain.AppMetrics {
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")

	cacheHits := getCounterValue(m.cacheHits, "articles") +
		getCounterValue(m.cacheHits, "rewards")
	cacheMisses := getCounterValue(m.cacheMisses, "articles") +
		getCounterValue(m.cacheMisses, "rewards")

	pointsAwarded := getCounterValue(m.pointsAwarded, "article_read") +
		getCounterValue(m.pointsAwarded, "goal_completed") +
		getCounterValue(m.pointsAwarded, "referral") +
		getCounterValue(m.pointsAwarded, "day_active")

	webhookEvents := getCounterValue(m.webhookEvents, "event") +
		getCounterValue(m.webhookEvents, "verification")

	errorRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	var claimed float64
	pb := &dto.Metric{}
	if err := m.rewardsClaimed.Write(pb); err == nil && pb.Counter != nil && pb.Counter.Value != nil {
		claimed = *pb.Counter.Value
	}

	return &domain.AppMetrics{
		TotalRequests:  int64(totalRequests),
		ErrorRate:      errorRate,
		CacheHitRate:   cacheHitRate,
		PointsAwarded:  int64(pointsAwarded),
		RewardsClaimed: int64(claimed),
		WebhookEvents:  int64(webhookEvents),
		Period:         "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
