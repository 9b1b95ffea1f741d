// Package jobs runs the periodic maintenance work: the booking expiry
// sweep, next-day lesson reminders and cleanup of read notifications.
package jobs

import (
	"context"
	"sync"
	"time"

	"tutorbook/internal/logger"
	"tutorbook/internal/metrics"
)

const (
	JobExpiry    = "expiry_sweep"
	JobReminders = "reminders"
	JobCleanup   = "notification_cleanup"
)

type Bookings interface {
	ExpireStale(ctx context.Context) (int, error)
	SendReminders(ctx context.Context) (int, error)
}

type Notifications interface {
	CleanupRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Intervals struct {
	Expiry    time.Duration
	Reminders time.Duration
	Cleanup   time.Duration
	// KeepRead is how long read notifications survive cleanup.
	KeepRead time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Expiry:    time.Hour,
		Reminders: 24 * time.Hour,
		Cleanup:   24 * time.Hour,
		KeepRead:  30 * 24 * time.Hour,
	}
}

type task struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) (int64, error)
}

type Scheduler struct {
	tasks []task
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func NewScheduler(bookings Bookings, notifications Notifications, iv Intervals) *Scheduler {
	def := DefaultIntervals()
	if iv.Expiry <= 0 {
		iv.Expiry = def.Expiry
	}
	if iv.Reminders <= 0 {
		iv.Reminders = def.Reminders
	}
	if iv.Cleanup <= 0 {
		iv.Cleanup = def.Cleanup
	}
	if iv.KeepRead <= 0 {
		iv.KeepRead = def.KeepRead
	}

	return &Scheduler{
		stop: make(chan struct{}),
		tasks: []task{
			{JobExpiry, iv.Expiry, func(ctx context.Context) (int64, error) {
				n, err := bookings.ExpireStale(ctx)
				return int64(n), err
			}},
			{JobReminders, iv.Reminders, func(ctx context.Context) (int64, error) {
				n, err := bookings.SendReminders(ctx)
				return int64(n), err
			}},
			{JobCleanup, iv.Cleanup, func(ctx context.Context) (int64, error) {
				return notifications.CleanupRead(ctx, iv.KeepRead)
			}},
		},
	}
}

// Start runs every job once immediately and then on its interval until
// ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("Starting background jobs", "jobs", len(s.tasks))
	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
}

// Stop halts all jobs and waits for a running one to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
	logger.Info("Background jobs stopped")
}

func (s *Scheduler) loop(ctx context.Context, t task) {
	defer s.wg.Done()

	s.runOnce(ctx, t)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, t)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t task) {
	start := time.Now()
	n, err := t.run(ctx)
	metrics.RecordJobRun(t.name, err)
	if err != nil {
		logger.Error("job failed", "job", t.name, "error", err)
		return
	}
	logger.Debug("job finished", "job", t.name, "affected", n, "duration_ms", time.Since(start).Milliseconds())
}

// RunNow runs the named job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) bool {
	for _, t := range s.tasks {
		if t.name == name {
			s.runOnce(ctx, t)
			return true
		}
	}
	return false
}
