// Package scheduler runs periodic background jobs such as idle visitor
// eviction.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
)

// errNotRunning is reported by the health check while the scheduler is stopped.
var errNotRunning = errors.New("scheduler not running")

// Job is one periodic task. It receives a context canceled on Stop.
type Job func(ctx context.Context)

// Scheduler wraps a gocron scheduler. Jobs never overlap with themselves and
// first run one interval after Start.
type Scheduler struct {
	cron   *gocron.Scheduler
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context //nolint:containedctx // job lifetime
	cancel context.CancelFunc
}

// New creates a stopped scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	cron.WaitForScheduleAll()
	cron.TagsUnique()

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron,
		logger: logger.With(slog.String("component", "scheduler")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every registers job under name to run at the given interval.
// Names must be unique.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("scheduling %q: interval must be positive, got %s", name, interval)
	}

	_, err := s.cron.Every(interval).Tag(name).Do(s.wrap(name, job))
	if err != nil {
		return fmt.Errorf("scheduling %q: %w", name, err)
	}

	s.logger.Debug("job scheduled",
		slog.String("job", name),
		slog.Duration("interval", interval),
	)

	return nil
}

// wrap adds logging and panic recovery around a job run.
func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}

		logger := s.logger.With(slog.String("job", name))
		ctx = logging.WithContext(ctx, logger)
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "job panicked", slog.Any("panic", r))
			}
		}()

		job(ctx)

		logger.Log(ctx, logging.LevelTrace, "job finished", slog.Duration("duration", time.Since(start)))
	}
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	jobs := s.cron.Jobs()

	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Tags()...)
	}

	return names
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.mu.Unlock()

	s.cron.StartAsync()
	s.logger.Info("scheduler started", slog.Int("jobs", s.cron.Len()))
}

// Stop cancels running jobs' contexts and stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	if s.cron.IsRunning() {
		s.cron.Stop()
		s.logger.Info("scheduler stopped")
	}
}

// Name implements ports.HealthChecker.
func (s *Scheduler) Name() string {
	return "scheduler"
}

// Check implements ports.HealthChecker.
func (s *Scheduler) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.cron.IsRunning() {
		return errNotRunning
	}

	return nil
}
