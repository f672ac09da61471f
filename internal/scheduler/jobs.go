package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/learnhub/learnhub/internal/metrics"
)

// Job IDs.
const (
	JobRefreshPopular = "refresh-popular"
	JobWarmCategories = "warm-categories"
)

// PopularSnapshotSize is how many course IDs the popular snapshot keeps.
const PopularSnapshotSize = 100

// PopularSource ranks published courses by enrollment count.
type PopularSource interface {
	TopCourseIDs(ctx context.Context, limit int) ([]string, error)
}

// PopularSink stores the popular snapshot.
type PopularSink interface {
	SetPopularSnapshot(ctx context.Context, ids []string, ttl time.Duration) error
}

// PopularRefresher rebuilds the cached popular-course snapshot.
type PopularRefresher struct {
	source  PopularSource
	sink    PopularSink
	ttl     time.Duration
	metrics metrics.Recorder
}

// NewPopularRefresher creates a refresher whose snapshot outlives a few
// missed refreshes.
func NewPopularRefresher(source PopularSource, sink PopularSink, interval time.Duration, recorder metrics.Recorder) *PopularRefresher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &PopularRefresher{
		source:  source,
		sink:    sink,
		ttl:     3 * interval,
		metrics: recorder,
	}
}

// Refresh loads the current ranking and replaces the snapshot.
func (r *PopularRefresher) Refresh(ctx context.Context) error {
	ids, err := r.source.TopCourseIDs(ctx, PopularSnapshotSize)
	if err != nil {
		r.metrics.IncPopularRefresh("failed")
		return fmt.Errorf("load popular courses: %w", err)
	}
	if err := r.sink.SetPopularSnapshot(ctx, ids, r.ttl); err != nil {
		r.metrics.IncPopularRefresh("failed")
		return fmt.Errorf("store popular snapshot: %w", err)
	}
	r.metrics.IncPopularRefresh("success")
	return nil
}
