package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncCourseCacheHit is a no-op.
func (n *NoopRecorder) IncCourseCacheHit() {}

// IncCourseCacheMiss is a no-op.
func (n *NoopRecorder) IncCourseCacheMiss() {}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(outcome string) {}

// IncEnrollment is a no-op.
func (n *NoopRecorder) IncEnrollment(kind string) {}

// IncRecommendationServed is a no-op.
func (n *NoopRecorder) IncRecommendationServed(source string) {}

// ObserveRecommendationItems is a no-op.
func (n *NoopRecorder) ObserveRecommendationItems(reason string, count int) {}

// ObserveRecommendationDuration is a no-op.
func (n *NoopRecorder) ObserveRecommendationDuration(duration time.Duration) {}

// IncActivityEventPublished is a no-op.
func (n *NoopRecorder) IncActivityEventPublished(status string) {}

// IncActivityEventProcessed is a no-op.
func (n *NoopRecorder) IncActivityEventProcessed(status string) {}

// ObserveActivityBatchSize is a no-op.
func (n *NoopRecorder) ObserveActivityBatchSize(size int) {}

// ObserveActivityBatchDuration is a no-op.
func (n *NoopRecorder) ObserveActivityBatchDuration(duration time.Duration) {}

// SetActivityQueueDepth is a no-op.
func (n *NoopRecorder) SetActivityQueueDepth(depth int64) {}

// ObserveActivityIngestLag is a no-op.
func (n *NoopRecorder) ObserveActivityIngestLag(lag time.Duration) {}

// IncPopularRefresh is a no-op.
func (n *NoopRecorder) IncPopularRefresh(status string) {}
