// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Catalog metrics
	IncCourseCacheHit()
	IncCourseCacheMiss()

	// Account metrics
	IncUserRegistered()
	IncLogin(outcome string) // outcome: "success" or "failure"

	// Enrollment metrics
	IncEnrollment(kind string) // kind: "enrolled" or "completed"

	// Recommendation metrics
	IncRecommendationServed(source string) // source: "cache" or "computed"
	ObserveRecommendationItems(reason string, count int)
	ObserveRecommendationDuration(duration time.Duration)

	// Activity pipeline metrics
	IncActivityEventPublished(status string) // status: "success" or "dropped"
	IncActivityEventProcessed(status string) // status: "success", "failed", "skipped"
	ObserveActivityBatchSize(size int)
	ObserveActivityBatchDuration(duration time.Duration)
	SetActivityQueueDepth(depth int64)
	ObserveActivityIngestLag(lag time.Duration)

	// Scheduler metrics
	IncPopularRefresh(status string) // status: "success" or "failed"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
