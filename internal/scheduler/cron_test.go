package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/Briefwire/Briefwire/internal/audit"
	"github.com/Briefwire/Briefwire/internal/pipeline"
	"github.com/Briefwire/Briefwire/internal/store"
	"github.com/Briefwire/Briefwire/internal/suggest"
	"github.com/Briefwire/Briefwire/internal/summarize"
)

func newTestCron(t *testing.T, s *store.Store) *Cron {
	t.Helper()
	ledger := audit.NewLedger(s)
	pipe := pipeline.New(s, summarize.NewStage(nil, "", 0), suggest.NewStage(nil, "", 0), ledger, 1)
	tasks := NewTaskRunner(s, nil, nil, ledger)
	return NewCron(CronConfig{
		Enabled:      true,
		TickInterval: time.Minute,
		LockPath:     t.TempDir() + "/cron.lock",
		BatchLimit:   10,
	}, s, pipe, tasks)
}

func TestCronTickRunsMatchingJobs(t *testing.T) {
	s := newTestStore(t)
	c := newTestCron(t, s)

	if _, err := s.InsertRawEvent(&store.RawEvent{UserID: "u1", Source: "mail", Content: "hello"}); err != nil {
		t.Fatalf("insert event: %v", err)
	}
	if err := s.UpsertCronJob("pipeline-minutely", "* * * * *", store.CronKindPipeline, true); err != nil {
		t.Fatalf("upsert job: %v", err)
	}

	c.tick(context.Background(), time.Now())
	c.wg.Wait()

	evts, err := s.ListUnprocessedEvents(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(evts) != 0 {
		t.Fatalf("expected the tick to drain the raw event, %d left", len(evts))
	}
}

func TestCronTickSkipsNonMatchingExpressions(t *testing.T) {
	s := newTestStore(t)
	c := newTestCron(t, s)

	if _, err := s.InsertRawEvent(&store.RawEvent{UserID: "u1", Source: "mail", Content: "hello"}); err != nil {
		t.Fatalf("insert event: %v", err)
	}

	// An expression that matches exactly one minute of the day; pick a tick
	// time one hour away from it.
	if err := s.UpsertCronJob("pipeline-rare", "0 3 * * *", store.CronKindPipeline, true); err != nil {
		t.Fatalf("upsert job: %v", err)
	}
	at := time.Date(2026, 9, 1, 4, 0, 0, 0, time.UTC)

	c.tick(context.Background(), at)
	c.wg.Wait()

	evts, _ := s.ListUnprocessedEvents(10)
	if len(evts) != 1 {
		t.Fatalf("expected the event to remain unprocessed, got %d", len(evts))
	}
}

func TestCronDispatchTasksKind(t *testing.T) {
	s := newTestStore(t)
	c := newTestCron(t, s)

	task, err := s.CreateScheduledTask(&store.ScheduledTask{
		UserID:       "u1",
		TaskType:     store.TaskTypeReminder,
		Title:        "ping",
		ScheduledFor: time.Now().UTC().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := s.UpsertCronJob("tasks-minutely", "* * * * *", store.CronKindTasks, true); err != nil {
		t.Fatalf("upsert job: %v", err)
	}

	c.tick(context.Background(), time.Now())
	c.wg.Wait()

	got, _ := s.GetScheduledTask(task.ID)
	if !got.IsCompleted {
		t.Fatalf("expected the due task dispatched by the tick")
	}
}
