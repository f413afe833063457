package domain

// HealthStatus is the /healthz response body.
type HealthStatus struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Version string `json:"version,omitempty"`
}

// AppMetrics is the snapshot served by GET /v1/metrics/app.
type AppMetrics struct {
	TotalRequests  int64   `json:"total_requests"`
	ErrorRate      float64 `json:"error_rate"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
	PointsAwarded  int64   `json:"points_awarded"`
	RewardsClaimed int64   `json:"rewards_claimed"`
	WebhookEvents  int64   `json:"webhook_events"`
	Period         string  `json:"period"`
}
