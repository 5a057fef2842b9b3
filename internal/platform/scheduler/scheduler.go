// Package scheduler runs the daily maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/ports/locking"
	"github.com/SscSPs/rates_tracker_app/internal/platform/metrics"
	"github.com/robfig/cron/v3"
)

// JobLockPrefix namespaces the locks held while a job runs.
const JobLockPrefix = "job:"

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron runner. A job holds a lock named after it while it
// runs, so with a shared locker only one instance executes each firing.
type Scheduler struct {
	cron    *cron.Cron
	locker  locking.Locker
	policy  locking.Policy
	logger  *slog.Logger
	mu      sync.Mutex
	jobs    map[string]JobFunc
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLockPolicy sets how long a firing waits for and holds the job lock.
func WithLockPolicy(p locking.Policy) Option {
	return func(s *Scheduler) {
		s.policy = p
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Scheduler firing in loc.
func New(locker locking.Locker, loc *time.Location, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		locker:  locker,
		policy:  locking.Policy{Wait: 0, Lease: 30 * time.Minute},
		logger:  slog.Default(),
		jobs:    make(map[string]JobFunc),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a job under a standard 5-field cron spec.
func (s *Scheduler) Register(name, schedule string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(schedule, func() { _ = s.RunJob(s.baseCtx, name) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", schedule, name, err)
	}
	s.jobs[name] = fn
	s.logger.Info("Scheduled job", slog.String("job", name), slog.String("schedule", schedule))
	return nil
}

// RunJob executes a registered job once, under its lock.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	s.mu.Lock()
	fn, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q is not registered", name)
	}

	logger := s.logger.With(slog.String("job", name))
	start := time.Now()
	err := locking.WithLock(ctx, s.locker, JobLockPrefix+name, s.policy, fn)
	metrics.RecordJobRun(name, err == nil)
	if err != nil {
		logger.Error("Scheduled job failed", slog.String("error", err.Error()), slog.Duration("duration", time.Since(start)))
		return err
	}
	logger.Info("Scheduled job finished", slog.Duration("duration", time.Since(start)))
	return nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	defer s.cancel()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
