package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/cache"
	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/model"
)

type enrollmentFixture struct {
	store     *fakeStore
	cache     *fakeCache
	publisher *fakePublisher
	recorder  *metrics.InMemoryRecorder
	svc       *EnrollmentService
}

func newEnrollmentFixture() *enrollmentFixture {
	store := newFakeStore()
	c := newFakeCache()
	publisher := &fakePublisher{}
	recorder := metrics.NewInMemory()
	courses := NewCourseService(store, store, c, cache.NewLocalCache(time.Minute), discardLogger(), recorder)
	return &enrollmentFixture{
		store:     store,
		cache:     c,
		publisher: publisher,
		recorder:  recorder,
		svc:       NewEnrollmentService(store, courses, c, publisher, discardLogger(), recorder),
	}
}

func TestEnroll(t *testing.T) {
	f := newEnrollmentFixture()
	c := f.store.addCourse("c1", "programming", 4, 4)
	ctx := context.Background()

	// Warm the course cache so eviction can be observed.
	require.NoError(t, f.cache.SetCourse(ctx, c))

	e, err := f.svc.Enroll(ctx, "u1", "c1")
	require.NoError(t, err)

	assert.Equal(t, model.EnrollmentStatusEnrolled, e.Status)
	require.NotNil(t, e.Course)
	assert.Equal(t, int64(5), e.Course.EnrollmentCount)
	assert.Equal(t, []string{"u1"}, f.cache.invalidated)
	assert.NotContains(t, f.cache.courses, "c1")

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, model.EventEnrolled, f.publisher.events[0].Type)
	assert.Equal(t, "c1", f.publisher.events[0].CourseID)
	assert.Equal(t, uint64(1), f.recorder.Snapshot().Enrollments)

	_, err = f.svc.Enroll(ctx, "u1", "c1")
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	_, err = f.svc.Enroll(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestEnroll_BySlug(t *testing.T) {
	f := newEnrollmentFixture()
	c := f.store.addCourse("C2", "design", 0, 4)

	e, err := f.svc.Enroll(context.Background(), "u1", c.Slug)
	require.NoError(t, err)
	assert.Equal(t, "C2", e.CourseID)
}

func TestComplete(t *testing.T) {
	f := newEnrollmentFixture()
	f.store.addCourse("c1", "programming", 0, 4)
	ctx := context.Background()

	_, err := f.svc.Complete(ctx, "u1", "c1")
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = f.svc.Enroll(ctx, "u1", "c1")
	require.NoError(t, err)

	e, err := f.svc.Complete(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.True(t, e.IsCompleted())
	assert.Equal(t, 100, e.Progress)
	assert.NotNil(t, e.CompletedAt)

	// Completing again changes nothing and emits nothing.
	_, err = f.svc.Complete(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Len(t, f.publisher.events, 2)
	assert.Equal(t, uint64(1), f.recorder.Snapshot().Completions)
}

func TestUpdateProgress(t *testing.T) {
	f := newEnrollmentFixture()
	f.store.addCourse("c1", "programming", 0, 4)
	ctx := context.Background()

	for _, p := range []int{-1, 101} {
		_, err := f.svc.UpdateProgress(ctx, "u1", "c1", p)
		assert.ErrorIs(t, err, ErrInvalidProgress)
	}

	_, err := f.svc.UpdateProgress(ctx, "u1", "c1", 40)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = f.svc.Enroll(ctx, "u1", "c1")
	require.NoError(t, err)

	e, err := f.svc.UpdateProgress(ctx, "u1", "c1", 40)
	require.NoError(t, err)
	assert.Equal(t, 40, e.Progress)
	assert.False(t, e.IsCompleted())

	e, err = f.svc.UpdateProgress(ctx, "u1", "c1", 100)
	require.NoError(t, err)
	assert.True(t, e.IsCompleted())
}

func TestListEnrollments(t *testing.T) {
	f := newEnrollmentFixture()
	f.store.addCourse("c1", "programming", 0, 4)
	f.store.addCourse("c2", "programming", 0, 4)
	ctx := context.Background()

	_, err := f.svc.Enroll(ctx, "u1", "c1")
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, "u1", "c2")
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, "u1", "c2")
	require.NoError(t, err)

	all, err := f.svc.ListEnrollments(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := f.svc.ListEnrollments(ctx, "u1", "completed")
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "c2", done[0].CourseID)

	_, err = f.svc.ListEnrollments(ctx, "u1", "dropped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
