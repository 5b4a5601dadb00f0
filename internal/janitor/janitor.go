// Package janitor runs periodic housekeeping over the gateway's in-memory
// and persisted state: stale cache entries, expired rate-limit windows and
// old request-log rows. Each Task reports how many items it removed.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Task is one housekeeping job.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Janitor schedules Tasks with a cron expression.
type Janitor struct {
	schedule string
	tasks    []Task
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a Janitor. schedule uses standard cron syntax or descriptors
// such as "@every 1m"; an empty schedule makes Start a no-op.
func New(schedule string, tasks ...Task) *Janitor {
	return &Janitor{
		schedule: schedule,
		tasks:    tasks,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "janitor"),
	}
}

// Start schedules the tasks and stops them when ctx is done.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.schedule == "" {
		j.logger.Info("janitor schedule not configured, skipping")
		return nil
	}
	if _, err := cron.ParseStandard(j.schedule); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}
	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule janitor: %w", err)
	}

	j.cron.Start()
	j.running = true
	j.logger.Info("janitor started", "schedule", j.schedule, "tasks", len(j.tasks))

	go func() {
		<-ctx.Done()
		j.Stop()
	}()
	return nil
}

// RunOnce runs every task immediately and returns the per-task counts.
// A failing task is logged and does not stop the others.
func (j *Janitor) RunOnce(ctx context.Context) map[string]int64 {
	results := make(map[string]int64, len(j.tasks))
	for _, t := range j.tasks {
		n, err := t.Run(ctx)
		if err != nil {
			j.logger.Error("janitor task failed", "task", t.Name, "error", err)
			continue
		}
		results[t.Name] = n
		if n > 0 {
			j.logger.Debug("janitor task completed", "task", t.Name, "removed", n)
		}
	}
	return results
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		<-j.cron.Stop().Done()
		j.running = false
		j.logger.Info("janitor stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
