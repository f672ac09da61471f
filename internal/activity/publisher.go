// Package activity carries enrollment and completion events from the API to
// the stats tables through a Redis stream.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/model"
)

const (
	// StreamKey is the Redis stream for enrollment events.
	StreamKey = "stream:enrollment_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:enrollment_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// EventPayload is the compact event format stored in the stream.
type EventPayload struct {
	Type       model.EventType `json:"e"`
	UserID     string          `json:"u"`
	CourseID   string          `json:"c"`
	OccurredAt int64           `json:"t"` // Unix milliseconds
}

// NewEventPayload builds a payload stamped with the current time.
func NewEventPayload(eventType model.EventType, userID, courseID string) EventPayload {
	return EventPayload{
		Type:       eventType,
		UserID:     userID,
		CourseID:   courseID,
		OccurredAt: time.Now().UnixMilli(),
	}
}

// Publisher enqueues enrollment events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewPublisher creates a new activity event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "activity.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event EventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged and counted, never returned. Events published after
// Shutdown are dropped.
func (p *Publisher) PublishAsync(event EventPayload) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("publisher closed, dropping enrollment event",
			"type", event.Type,
			"course_id", event.CourseID,
		)
		p.metrics.IncActivityEventPublished("dropped")
		return
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish enrollment event",
				"type", event.Type,
				"course_id", event.CourseID,
				"error", err,
			)
			p.metrics.IncActivityEventPublished("dropped")
			return
		}

		p.logger.Debug("enrollment event published",
			"type", event.Type,
			"course_id", event.CourseID,
			"stream_id", streamID,
		)
		p.metrics.IncActivityEventPublished("success")
	}()
}

// Shutdown stops accepting events and waits for in-flight publishes.
// It matches server.ShutdownFunc and must run before the Redis client closes.
func (p *Publisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn("publisher shutdown timed out")
		return ctx.Err()
	}
}
