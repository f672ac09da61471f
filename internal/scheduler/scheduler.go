// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// ErrJobNotFound is returned by RunNow for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// JobStatus represents the status of a job.
type JobStatus string

const (
	JobStatusScheduled JobStatus = "scheduled"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobInfo describes a registered job and its last outcome.
type JobInfo struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	Status     JobStatus     `json:"status"`
	LastRun    time.Time     `json:"last_run,omitempty"`
	NextRun    time.Time     `json:"next_run,omitempty"`
	RunCount   int           `json:"run_count"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`

	job gocron.Job
}

// JobFunc is a unit of scheduled work.
type JobFunc func(ctx context.Context) error

// Scheduler wraps gocron with per-job bookkeeping.
type Scheduler struct {
	gocron gocron.Scheduler
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*JobInfo
}

// New creates a scheduler. Jobs run with a context that is cancelled on Shutdown.
func New(logger *slog.Logger) (*Scheduler, error) {
	logger = logger.With("component", "scheduler")

	s, err := gocron.NewScheduler(gocron.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: s,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*JobInfo),
	}, nil
}

// AddSingletonJob registers fn to run every interval. A run that would overlap
// the previous one is rescheduled instead. With runAtStart the first run
// happens as soon as the scheduler starts.
func (s *Scheduler) AddSingletonJob(id, name string, interval time.Duration, fn JobFunc, runAtStart bool) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", id)
	}

	info := &JobInfo{ID: id, Name: name, Interval: interval, Status: JobStatusScheduled}

	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if runAtStart {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := s.gocron.NewJob(gocron.DurationJob(interval), gocron.NewTask(s.wrap(info, fn)), opts...)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}
	info.job = job

	s.mu.Lock()
	s.jobs[id] = info
	s.mu.Unlock()

	s.logger.Info("job registered", "id", id, "interval", interval.String())
	return nil
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	s.gocron.Start()
	s.logger.Info("scheduler started")
}

// Shutdown cancels running jobs and stops the scheduler.
// It matches server.ShutdownFunc.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan error, 1)
	go func() { done <- s.gocron.Shutdown() }()

	select {
	case err := <-done:
		s.logger.Info("scheduler stopped")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow triggers a job outside its schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	info, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err := info.job.RunNow(); err != nil {
		return fmt.Errorf("failed to trigger job %s: %w", id, err)
	}
	return nil
}

// Jobs returns a snapshot of every registered job, ordered by ID.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, info := range s.jobs {
		copied := *info
		if next, err := info.job.NextRun(); err == nil {
			copied.NextRun = next
		}
		copied.job = nil
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Scheduler) wrap(info *JobInfo, fn JobFunc) func() {
	return func() {
		s.mu.Lock()
		info.Status = JobStatusRunning
		info.LastRun = time.Now()
		info.RunCount++
		s.mu.Unlock()

		start := time.Now()
		err := fn(s.ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			info.Status = JobStatusFailed
			info.ErrorCount++
			info.LastError = err.Error()
			s.logger.Error("job failed", "id", info.ID, "error", err)
			return
		}
		info.Status = JobStatusCompleted
		info.LastError = ""
		s.logger.Debug("job completed", "id", info.ID, "duration_ms", time.Since(start).Milliseconds())
	}
}
