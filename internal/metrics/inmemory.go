package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests            uint64
	CourseCacheHits         uint64
	CourseCacheMisses       uint64
	UsersRegistered         uint64
	LoginsSucceeded         uint64
	LoginsFailed            uint64
	Enrollments             uint64
	Completions             uint64
	RecommendationsCached   uint64
	RecommendationsComputed uint64
	RecommendationItems     map[string]uint64
	ActivityEventsPublished uint64
	ActivityEventsDropped   uint64
	ActivityEventsProcessed uint64
	ActivityEventsFailed    uint64
	ActivityEventsSkipped   uint64
	ActivityBatchCount      uint64
	ActivityQueueDepth      int64
	PopularRefreshes        uint64
	PopularRefreshesFailed  uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	httpRequests            uint64
	courseCacheHits         uint64
	courseCacheMisses       uint64
	usersRegistered         uint64
	loginsSucceeded         uint64
	loginsFailed            uint64
	enrollments             uint64
	completions             uint64
	recommendationsCached   uint64
	recommendationsComputed uint64
	activityPublished       uint64
	activityDropped         uint64
	activityProcessed       uint64
	activityFailed          uint64
	activitySkipped         uint64
	activityBatches         uint64
	activityQueueDepth      int64
	popularRefreshes        uint64
	popularRefreshesFailed  uint64

	mu       sync.Mutex
	recItems map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{recItems: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	items := make(map[string]uint64, len(m.recItems))
	for k, v := range m.recItems {
		items[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		HTTPRequests:            atomic.LoadUint64(&m.httpRequests),
		CourseCacheHits:         atomic.LoadUint64(&m.courseCacheHits),
		CourseCacheMisses:       atomic.LoadUint64(&m.courseCacheMisses),
		UsersRegistered:         atomic.LoadUint64(&m.usersRegistered),
		LoginsSucceeded:         atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:            atomic.LoadUint64(&m.loginsFailed),
		Enrollments:             atomic.LoadUint64(&m.enrollments),
		Completions:             atomic.LoadUint64(&m.completions),
		RecommendationsCached:   atomic.LoadUint64(&m.recommendationsCached),
		RecommendationsComputed: atomic.LoadUint64(&m.recommendationsComputed),
		RecommendationItems:     items,
		ActivityEventsPublished: atomic.LoadUint64(&m.activityPublished),
		ActivityEventsDropped:   atomic.LoadUint64(&m.activityDropped),
		ActivityEventsProcessed: atomic.LoadUint64(&m.activityProcessed),
		ActivityEventsFailed:    atomic.LoadUint64(&m.activityFailed),
		ActivityEventsSkipped:   atomic.LoadUint64(&m.activitySkipped),
		ActivityBatchCount:      atomic.LoadUint64(&m.activityBatches),
		ActivityQueueDepth:      atomic.LoadInt64(&m.activityQueueDepth),
		PopularRefreshes:        atomic.LoadUint64(&m.popularRefreshes),
		PopularRefreshesFailed:  atomic.LoadUint64(&m.popularRefreshesFailed),
	}
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncCourseCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncCourseCacheHit() {
	atomic.AddUint64(&m.courseCacheHits, 1)
}

// IncCourseCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncCourseCacheMiss() {
	atomic.AddUint64(&m.courseCacheMisses, 1)
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLogin increments the login counter for the outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	if outcome == "success" {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncEnrollment increments the enrollment or completion counter.
func (m *InMemoryRecorder) IncEnrollment(kind string) {
	if kind == "completed" {
		atomic.AddUint64(&m.completions, 1)
		return
	}
	atomic.AddUint64(&m.enrollments, 1)
}

// IncRecommendationServed increments the served counter for the source.
func (m *InMemoryRecorder) IncRecommendationServed(source string) {
	if source == "cache" {
		atomic.AddUint64(&m.recommendationsCached, 1)
		return
	}
	atomic.AddUint64(&m.recommendationsComputed, 1)
}

// ObserveRecommendationItems adds count items for the reason.
func (m *InMemoryRecorder) ObserveRecommendationItems(reason string, count int) {
	m.mu.Lock()
	m.recItems[reason] += uint64(count)
	m.mu.Unlock()
}

// ObserveRecommendationDuration is not tracked in memory.
func (m *InMemoryRecorder) ObserveRecommendationDuration(duration time.Duration) {}

// IncActivityEventPublished tracks publish outcomes.
func (m *InMemoryRecorder) IncActivityEventPublished(status string) {
	if status == "dropped" {
		atomic.AddUint64(&m.activityDropped, 1)
		return
	}
	atomic.AddUint64(&m.activityPublished, 1)
}

// IncActivityEventProcessed tracks worker outcomes.
func (m *InMemoryRecorder) IncActivityEventProcessed(status string) {
	switch status {
	case "failed":
		atomic.AddUint64(&m.activityFailed, 1)
	case "skipped":
		atomic.AddUint64(&m.activitySkipped, 1)
	default:
		atomic.AddUint64(&m.activityProcessed, 1)
	}
}

// ObserveActivityBatchSize counts processed batches.
func (m *InMemoryRecorder) ObserveActivityBatchSize(size int) {
	atomic.AddUint64(&m.activityBatches, 1)
}

// ObserveActivityBatchDuration is not tracked in memory.
func (m *InMemoryRecorder) ObserveActivityBatchDuration(duration time.Duration) {}

// SetActivityQueueDepth records the pending message count.
func (m *InMemoryRecorder) SetActivityQueueDepth(depth int64) {
	atomic.StoreInt64(&m.activityQueueDepth, depth)
}

// ObserveActivityIngestLag is not tracked in memory.
func (m *InMemoryRecorder) ObserveActivityIngestLag(lag time.Duration) {}

// IncPopularRefresh tracks popular snapshot refreshes.
func (m *InMemoryRecorder) IncPopularRefresh(status string) {
	if status == "failed" {
		atomic.AddUint64(&m.popularRefreshesFailed, 1)
		return
	}
	atomic.AddUint64(&m.popularRefreshes, 1)
}
