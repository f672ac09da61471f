package activity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/model"
)

func validPayload(now time.Time) EventPayload {
	return EventPayload{
		Type:       model.EventEnrolled,
		UserID:     ulid.Make().String(),
		CourseID:   ulid.Make().String(),
		OccurredAt: now.UnixMilli(),
	}
}

func TestValidatePayload(t *testing.T) {
	now := time.Now()
	require.NoError(t, ValidatePayload(validPayload(now), now))

	tests := []struct {
		name   string
		mutate func(p *EventPayload)
	}{
		{"unknown_type", func(p *EventPayload) { p.Type = "viewed" }},
		{"missing_user", func(p *EventPayload) { p.UserID = "" }},
		{"user_not_ulid", func(p *EventPayload) { p.UserID = "user-1" }},
		{"missing_course", func(p *EventPayload) { p.CourseID = "" }},
		{"course_not_ulid", func(p *EventPayload) { p.CourseID = "intro-to-go" }},
		{"missing_time", func(p *EventPayload) { p.OccurredAt = 0 }},
		{"future_time", func(p *EventPayload) { p.OccurredAt = now.Add(time.Hour).UnixMilli() }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload(now)
			tc.mutate(&p)
			assert.Error(t, ValidatePayload(p, now))
		})
	}
}

func TestNewEventPayload(t *testing.T) {
	before := time.Now().UnixMilli()
	p := NewEventPayload(model.EventCompleted, "u", "c")

	assert.Equal(t, model.EventCompleted, p.Type)
	assert.Equal(t, "u", p.UserID)
	assert.Equal(t, "c", p.CourseID)
	assert.GreaterOrEqual(t, p.OccurredAt, before)
}

func TestDecodeMessage(t *testing.T) {
	now := time.Now()
	p := validPayload(now)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	event, reason, err := decodeMessage(redis.XMessage{
		ID:     "1700000000000-0",
		Values: map[string]interface{}{"payload": string(data)},
	}, now)
	require.NoError(t, err)
	assert.Empty(t, reason)
	assert.Equal(t, "1700000000000-0", event.EventID)
	assert.Equal(t, model.EventEnrolled, event.Type)
	assert.Equal(t, p.CourseID, event.CourseID)
	assert.NotEmpty(t, event.ID)

	_, reason, err = decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{}}, now)
	assert.Error(t, err)
	assert.Equal(t, "invalid_format", reason)

	_, reason, err = decodeMessage(redis.XMessage{ID: "1-1", Values: map[string]interface{}{"payload": "{not json"}}, now)
	assert.Error(t, err)
	assert.Equal(t, "unmarshal_error", reason)

	_, reason, err = decodeMessage(redis.XMessage{ID: "1-2", Values: map[string]interface{}{"payload": `{"e":"enrolled"}`}}, now)
	assert.Error(t, err)
	assert.Equal(t, "validation_error", reason)
}

func TestIsConsumerGroupExistsError(t *testing.T) {
	assert.True(t, isConsumerGroupExistsError(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isConsumerGroupExistsError(errors.New("ERR no such key")))
	assert.False(t, isConsumerGroupExistsError(nil))
}

type fakeRepo struct {
	failures int
	inserts  int
	stats    int
}

func (f *fakeRepo) BulkInsert(ctx context.Context, events []*model.EnrollmentEvent) error {
	f.inserts++
	if f.failures > 0 {
		f.failures--
		return errors.New("db unavailable")
	}
	return nil
}

func (f *fakeRepo) UpdateDailyStats(ctx context.Context, events []*model.EnrollmentEvent) error {
	f.stats++
	return nil
}

func newTestWorker(repo Repository, recorder metrics.Recorder) *Worker {
	w := NewWorker(nil, repo, slog.New(slog.NewTextHandler(io.Discard, nil)), "test", recorder)
	w.SetRetryBase(time.Millisecond)
	return w
}

func TestProcessBatchWithRetry_RecoversAfterFailure(t *testing.T) {
	repo := &fakeRepo{failures: 1}
	recorder := metrics.NewInMemory()
	w := newTestWorker(repo, recorder)

	events := []*model.EnrollmentEvent{{EventID: "1-0", OccurredAt: time.Now()}}
	require.NoError(t, w.processBatchWithRetry(context.Background(), events))

	assert.Equal(t, 2, repo.inserts)
	assert.Equal(t, 1, repo.stats)
	snap := recorder.Snapshot()
	assert.Equal(t, uint64(1), snap.ActivityEventsProcessed)
	assert.Equal(t, uint64(1), snap.ActivityBatchCount)
}

func TestProcessBatchWithRetry_GivesUp(t *testing.T) {
	repo := &fakeRepo{failures: 10}
	recorder := metrics.NewInMemory()
	w := newTestWorker(repo, recorder)

	events := []*model.EnrollmentEvent{{EventID: "1-0"}, {EventID: "1-1"}}
	err := w.processBatchWithRetry(context.Background(), events)

	require.Error(t, err)
	assert.Equal(t, DefaultMaxRetries, repo.inserts)
	assert.Zero(t, repo.stats)
	assert.Equal(t, uint64(2), recorder.Snapshot().ActivityEventsFailed)
}

func TestProcessBatchWithRetry_ContextCancelled(t *testing.T) {
	repo := &fakeRepo{failures: 10}
	w := newTestWorker(repo, nil)
	w.SetRetryBase(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.processBatchWithRetry(ctx, []*model.EnrollmentEvent{{EventID: "1-0"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, repo.inserts)
}

func TestShutdown_NotStarted(t *testing.T) {
	w := newTestWorker(&fakeRepo{}, nil)
	assert.NoError(t, w.Shutdown(context.Background()))
}

func TestPublisher_ShutdownWaitsForInflight(t *testing.T) {
	// Nothing listens on port 1, so every publish fails after dialing.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 20 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	recorder := metrics.NewInMemory()
	pub := NewPublisher(client, slog.New(slog.NewTextHandler(io.Discard, nil)), recorder)

	pub.PublishAsync(validPayload(time.Now()))
	pub.PublishAsync(validPayload(time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pub.Shutdown(ctx))
	assert.Equal(t, uint64(2), recorder.Snapshot().ActivityEventsDropped)

	// Rejected without starting a publish.
	pub.PublishAsync(validPayload(time.Now()))
	assert.Equal(t, uint64(3), recorder.Snapshot().ActivityEventsDropped)
	require.NoError(t, pub.Shutdown(ctx))
}
