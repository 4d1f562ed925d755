package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Briefwire/Briefwire/internal/pipeline"
	"github.com/Briefwire/Briefwire/internal/store"
)

// CronConfig holds cron tick loop settings.
type CronConfig struct {
	Enabled         bool          `json:"enabled" envconfig:"CRON_ENABLED"`
	TickInterval    time.Duration `json:"tickInterval"`
	LockPath        string        `json:"lockPath"`
	MaxConcPipeline int           `json:"maxConcPipeline"`
	MaxConcTasks    int           `json:"maxConcTasks"`
	BatchLimit      int           `json:"batchLimit"`
}

// Cron periodically triggers the pipeline and the due-task runner. Job
// definitions live in the cron_jobs table and are re-read on every tick, so
// the schedule is never in-process state. Ticks across processes are
// serialized by a file lock; overlapping runs of one job kind are capped by
// per-kind semaphores. The batch operations themselves stay safe under
// overlap via their own claim steps.
type Cron struct {
	cfg        CronConfig
	store      *store.Store
	pipeline   *pipeline.Orchestrator
	tasks      *TaskRunner
	semaphores map[string]*Semaphore
	lock       *FileLock
	wg         sync.WaitGroup
}

// NewCron creates the cron trigger loop.
func NewCron(cfg CronConfig, s *store.Store, p *pipeline.Orchestrator, t *TaskRunner) *Cron {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 60 * time.Second
	}
	if cfg.MaxConcPipeline <= 0 {
		cfg.MaxConcPipeline = 1
	}
	if cfg.MaxConcTasks <= 0 {
		cfg.MaxConcTasks = 1
	}
	return &Cron{
		cfg:      cfg,
		store:    s,
		pipeline: p,
		tasks:    t,
		semaphores: map[string]*Semaphore{
			store.CronKindPipeline: NewSemaphore(cfg.MaxConcPipeline),
			store.CronKindTasks:    NewSemaphore(cfg.MaxConcTasks),
		},
		lock: NewFileLock(cfg.LockPath),
	}
}

// Run starts the tick loop. Blocks until the context is cancelled.
func (c *Cron) Run(ctx context.Context) error {
	slog.Info("Cron started", "tick", c.cfg.TickInterval)
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.wg.Wait()
			slog.Info("Cron stopped")
			return ctx.Err()
		case now := <-ticker.C:
			c.tick(ctx, now)
		}
	}
}

// tick acquires the process lock, reads the job table, and dispatches every
// job whose expression matches now.
func (c *Cron) tick(ctx context.Context, now time.Time) {
	acquired, err := c.lock.TryLock()
	if err != nil {
		slog.Warn("Cron lock error", "error", err)
		return
	}
	if !acquired {
		slog.Debug("Cron tick skipped: lock held by another process")
		return
	}
	defer c.lock.Unlock()

	jobs, err := c.store.ListCronJobs()
	if err != nil {
		slog.Error("Cron job table read failed", "error", err)
		return
	}

	for _, job := range jobs {
		expr, err := ParseCron(job.Expr)
		if err != nil {
			slog.Warn("Cron job has invalid expression", "job", job.Name, "expr", job.Expr, "error", err)
			continue
		}
		if !expr.Matches(now) {
			continue
		}
		c.dispatch(ctx, job)
	}
}

func (c *Cron) dispatch(ctx context.Context, job store.CronJob) {
	sem := c.semaphores[job.Kind]
	if sem == nil {
		slog.Warn("Cron job has unknown kind", "job", job.Name, "kind", job.Kind)
		return
	}
	if !sem.TryAcquire() {
		slog.Warn("Cron job skipped: previous run still active", "job", job.Name, "kind", job.Kind)
		_ = c.store.LogCronRun(job.Name, "skipped_concurrency")
		return
	}

	slog.Info("Cron dispatching job", "job", job.Name, "kind", job.Kind)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer sem.Release()

		status := "ok"
		switch job.Kind {
		case store.CronKindPipeline:
			if _, err := c.pipeline.RunBatch(ctx, c.cfg.BatchLimit); err != nil {
				status = "error: " + err.Error()
			}
		case store.CronKindTasks:
			if _, err := c.tasks.RunDueTasks(ctx, time.Now()); err != nil {
				status = "error: " + err.Error()
			}
		}
		_ = c.store.LogCronRun(job.Name, status)
	}()
}
