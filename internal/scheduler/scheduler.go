// Package scheduler runs the background cron loop: backup, channel-reset,
// cache-refresh, linear-EPG refresh, and the generation driver, each on its
// own cron expression, checked at minute resolution.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/titooo7/teamarr-sub000/internal/generation"
	"github.com/titooo7/teamarr-sub000/internal/platform/logger"
	"github.com/titooo7/teamarr-sub000/internal/platform/metrics"
)

// parser accepts the standard 5-field cron expression (minute hour dom
// month dow) — the same format the reference scheduler documents.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Task is one background job the scheduler fires on its own cron schedule.
// Name is used only for logging.
type Task struct {
	Name     string
	Schedule cron.Schedule
	Run      func(ctx context.Context) error
}

// ParseSchedule compiles a standard 5-field cron expression, used by
// callers building a Task.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

// Scheduler polls its tasks once a second and fires any that are due,
// always in the order they were registered — the reference's own fixed
// ordering of backup, channel-reset, cache-refresh, linear-EPG, then
// generation relies on this.
type Scheduler struct {
	Tasks []Task
	Now   func() time.Time

	running int32 // atomic: 1 while a task's Run is executing

	stop chan struct{}
	done chan struct{}
}

// NewGenerationTask wraps a generation.Driver as a Task so it can sit
// alongside the scheduler's other background jobs, declining to run (and
// logging why) if a run is already in progress — the generation-in-progress
// guard described for the scheduler loop.
func NewGenerationTask(name string, schedule cron.Schedule, driver *generation.Driver, targetDate func() time.Time, progress generation.ProgressFunc) Task {
	return Task{
		Name:     name,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := driver.Run(ctx, targetDate(), progress)
			return err
		},
	}
}

// Start runs the scheduler loop until ctx is cancelled or Stop is called.
// It sleeps in 1-second increments, checking the stop signal each tick, so
// shutdown is bounded by one second plus however long the in-flight task
// takes to return.
func (s *Scheduler) Start(ctx context.Context) {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		var lastChecked time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				now := s.now()
				if lastChecked.IsZero() {
					lastChecked = now.Add(-time.Minute)
				}
				s.fireDue(ctx, lastChecked, now)
				lastChecked = now
			}
		}
	}()
}

// Stop signals the loop to exit and blocks until it has.
func (s *Scheduler) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// fireDue runs every task whose schedule has a fire time in (since, until],
// in registration order. If a task is already running when its turn comes
// up, the tick is declined for that task rather than queued or run
// concurrently.
func (s *Scheduler) fireDue(ctx context.Context, since, until time.Time) {
	log := logger.FromContext(ctx)
	for _, task := range s.Tasks {
		next := task.Schedule.Next(since)
		if next.After(until) {
			continue
		}
		if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
			log.Warn("scheduler tick declined: a task is already running", "task", task.Name)
			continue
		}
		func() {
			defer atomic.StoreInt32(&s.running, 0)
			log.Info("scheduler task starting", "task", task.Name)
			metrics.SchedulerTicks.WithLabelValues(task.Name).Inc()
			if err := task.Run(ctx); err != nil {
				log.Error("scheduler task failed", "task", task.Name, "error", err)
				return
			}
			log.Info("scheduler task finished", "task", task.Name)
		}()
	}
}
