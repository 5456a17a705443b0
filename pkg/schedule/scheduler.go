// Package schedule runs modalvec maintenance on a cron schedule:
// cache TTL sweeps, optimizer passes and snapshot persistence.
//
// Jobs carry no schedule of their own and can be invoked directly in
// tests; the scheduler owns the lifecycle explicitly via Start/Stop.
package schedule

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/liliang-cn/modalvec/pkg/core"
)

// Job is a named unit of maintenance work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules.
type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

// CronScheduler schedules jobs with standard 5-field cron specs. A job
// still running when its next tick fires is skipped, not overlapped.
type CronScheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	logger  core.Logger
	ctx     context.Context
}

// NewCronScheduler creates an idle scheduler. Call Start to begin
// dispatching.
func NewCronScheduler(logger core.Logger) *CronScheduler {
	if logger == nil {
		logger = core.NopLogger()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
		logger:  logger,
	}
}

// AddJob registers a job under a cron spec.
func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := c.logger.With("job", name, "spec", spec)

	entryID, err := c.cron.AddFunc(spec, c.wrap(job))
	if err != nil {
		logger.Error("schedule job failed", "error", err)
		return err
	}
	c.entries[name] = entryID
	logger.Info("job scheduled")
	return nil
}

// Start begins dispatching jobs. The context is passed to every run.
func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

// Stop halts dispatching and waits for running jobs to finish.
func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// wrap guards a job against overlapping runs and logs its outcome.
func (c *CronScheduler) wrap(job Job) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			c.logger.Info("job skipped: still running", "job", job.Name())
			return
		}
		defer running.Store(false)

		ctx := c.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := job.Run(ctx); err != nil {
			c.logger.Error("job failed", "job", job.Name(), "error", err)
			return
		}
		c.logger.Debug("job finished", "job", job.Name())
	}
}
