package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "briefwire.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestRawEventLifecycle(t *testing.T) {
	s := newTestStore(t)

	evt, err := s.InsertRawEvent(&RawEvent{UserID: "u1", Source: "mail", Content: "hello"})
	if err != nil {
		t.Fatalf("insert raw event: %v", err)
	}
	if evt.ID == "" {
		t.Fatalf("expected generated id")
	}
	if evt.Status != EventStatusRaw {
		t.Fatalf("expected raw status, got %s", evt.Status)
	}

	claimed, err := s.ClaimRawEvent(evt.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected first claim to succeed")
	}

	// Second claim must lose.
	claimed, err = s.ClaimRawEvent(evt.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatalf("expected second claim to fail")
	}

	if err := s.FinishRawEvent(evt.ID, EventStatusProcessed, ""); err != nil {
		t.Fatalf("finish: %v", err)
	}
	got, err := s.GetRawEvent(evt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != EventStatusProcessed {
		t.Fatalf("expected processed, got %s", got.Status)
	}

	// Finishing again is an error: the event left processing state.
	if err := s.FinishRawEvent(evt.ID, EventStatusFailed, "x"); err == nil {
		t.Fatalf("expected error finishing non-processing event")
	}
}

func TestInsertRawEventValidation(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.InsertRawEvent(&RawEvent{Source: "mail"}); err == nil {
		t.Fatalf("expected error for missing user_id")
	}
	if _, err := s.InsertRawEvent(&RawEvent{UserID: "u1"}); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestFinishRawEventRejectsInvalidStatus(t *testing.T) {
	s := newTestStore(t)
	evt, _ := s.InsertRawEvent(&RawEvent{UserID: "u1", Source: "chat", Content: "x"})
	if _, err := s.ClaimRawEvent(evt.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.FinishRawEvent(evt.ID, "pending", ""); err == nil {
		t.Fatalf("expected error for invalid terminal status")
	}
}

func TestListUnprocessedEventsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.InsertRawEvent(&RawEvent{UserID: "u1", Source: "mail", Content: "m"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	events, err := s.ListUnprocessedEvents(3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	// Claimed events drop out of the unprocessed list.
	if _, err := s.ClaimRawEvent(events[0].ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	events, err = s.ListUnprocessedEvents(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 remaining events, got %d", len(events))
	}
}

func TestSummaryRoundTrip(t *testing.T) {
	s := newTestStore(t)

	sum, err := s.InsertSummary(&Summary{
		RawEventID:  "evt-1",
		UserID:      "u1",
		SummaryText: "Quarterly review moved to Friday",
		Topic:       "scheduling",
		Entities:    []string{"Dana", "Quarterly review"},
		Importance:  ImportanceHigh,
		ModelUsed:   "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("insert summary: %v", err)
	}
	if sum.IsViewed {
		t.Fatalf("new summary must not be viewed")
	}
	if len(sum.Entities) != 2 || sum.Entities[0] != "Dana" {
		t.Fatalf("entities not preserved in order: %v", sum.Entities)
	}

	byEvent, err := s.GetSummaryByEvent("evt-1")
	if err != nil {
		t.Fatalf("get by event: %v", err)
	}
	if byEvent.ID != sum.ID {
		t.Fatalf("expected same summary")
	}

	if err := s.MarkSummaryViewed(sum.ID); err != nil {
		t.Fatalf("mark viewed: %v", err)
	}
	got, _ := s.GetSummary(sum.ID)
	if !got.IsViewed {
		t.Fatalf("expected viewed flag set")
	}
}

func TestSummaryDefaultsAndNilEntities(t *testing.T) {
	s := newTestStore(t)

	sum, err := s.InsertSummary(&Summary{UserID: "u1", SummaryText: "x"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if sum.Importance != ImportanceLow {
		t.Fatalf("expected low default importance, got %s", sum.Importance)
	}
	if sum.Entities == nil || len(sum.Entities) != 0 {
		t.Fatalf("expected empty entities slice, got %v", sum.Entities)
	}
}

func TestActionTransitions(t *testing.T) {
	s := newTestStore(t)

	a, err := s.CreateAction(&Action{
		UserID:               "u1",
		Type:                 ActionTypeSendEmail,
		Payload:              `{"to":"x@example.com"}`,
		RequiresConfirmation: true,
	})
	if err != nil {
		t.Fatalf("create action: %v", err)
	}
	if a.Status != ActionStatusPending {
		t.Fatalf("expected pending, got %s", a.Status)
	}

	ok, err := s.TransitionAction(a.ID, ActionStatusPending, ActionStatusConfirmed)
	if err != nil || !ok {
		t.Fatalf("expected confirm transition to succeed: ok=%v err=%v", ok, err)
	}

	// The decision slot is taken; cancel must lose.
	ok, err = s.TransitionAction(a.ID, ActionStatusPending, ActionStatusCancelled)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if ok {
		t.Fatalf("expected second transition to fail")
	}

	if err := s.FinishActionExecution(a.ID, ActionStatusExecuted, "msg-42", ""); err != nil {
		t.Fatalf("finish execution: %v", err)
	}
	got, _ := s.GetAction(a.ID)
	if got.Status != ActionStatusExecuted {
		t.Fatalf("expected executed, got %s", got.Status)
	}
	if got.ResultMessageID != "msg-42" {
		t.Fatalf("expected result message id, got %q", got.ResultMessageID)
	}
	if got.ExecutedAt == nil {
		t.Fatalf("expected executed_at set")
	}
}

func TestFinishActionExecutionRequiresConfirmed(t *testing.T) {
	s := newTestStore(t)

	a, _ := s.CreateAction(&Action{UserID: "u1", Type: ActionTypeSendChat})
	// Still pending: the finish write must be a no-op.
	if err := s.FinishActionExecution(a.ID, ActionStatusExecuted, "m", ""); err != nil {
		t.Fatalf("finish: %v", err)
	}
	got, _ := s.GetAction(a.ID)
	if got.Status != ActionStatusPending {
		t.Fatalf("pending action must not be finished, got %s", got.Status)
	}
}

func TestListActionsFilters(t *testing.T) {
	s := newTestStore(t)

	s.CreateAction(&Action{UserID: "u1", Type: ActionTypeSendEmail})
	s.CreateAction(&Action{UserID: "u2", Type: ActionTypeSendChat})
	a3, _ := s.CreateAction(&Action{UserID: "u1", Type: ActionTypeSendChat})
	s.TransitionAction(a3.ID, ActionStatusPending, ActionStatusCancelled)

	all, err := s.ListActions("", "", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(all))
	}

	u1Pending, err := s.ListActions("u1", ActionStatusPending, 10, 0)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(u1Pending) != 1 {
		t.Fatalf("expected 1 pending action for u1, got %d", len(u1Pending))
	}
}

func TestScheduledTaskDueQuery(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	past, err := s.CreateScheduledTask(&ScheduledTask{
		UserID:       "u1",
		TaskType:     TaskTypeReminder,
		Title:        "water plants",
		ScheduledFor: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	_, err = s.CreateScheduledTask(&ScheduledTask{
		UserID:       "u1",
		TaskType:     TaskTypeReminder,
		Title:        "future",
		ScheduledFor: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create future task: %v", err)
	}

	due, err := s.ListDueTasks(now, 10)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != past.ID {
		t.Fatalf("expected only the past task due, got %d", len(due))
	}

	if err := s.CompleteTask(past.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	due, _ = s.ListDueTasks(now, 10)
	if len(due) != 0 {
		t.Fatalf("expected no due tasks after completion, got %d", len(due))
	}

	if err := s.CompleteTask("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuditQueryFilters(t *testing.T) {
	s := newTestStore(t)

	entries := []*AuditEntry{
		{RawEventID: "e1", UserID: "u1", Stage: StageSummarized, Status: AuditSuccess},
		{RawEventID: "e1", UserID: "u1", Stage: StageActionSuggested, Status: AuditFailed, Message: "provider down"},
		{RawEventID: "e2", UserID: "u2", Stage: StageSummarized, Status: AuditSuccess},
	}
	for _, e := range entries {
		if err := s.InsertAuditEntry(e); err != nil {
			t.Fatalf("insert audit: %v", err)
		}
	}

	byEvent, err := s.QueryAudit(AuditFilter{RawEventID: "e1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(byEvent) != 2 {
		t.Fatalf("expected 2 entries for e1, got %d", len(byEvent))
	}

	failed, err := s.QueryAudit(AuditFilter{Status: AuditFailed})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(failed) != 1 || failed[0].Message != "provider down" {
		t.Fatalf("unexpected failed entries: %+v", failed)
	}

	byStage, err := s.QueryAudit(AuditFilter{Stage: StageSummarized, UserID: "u2"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(byStage) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(byStage))
	}
}

func TestCronJobConfig(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertCronJob("pipeline-minutely", "* * * * *", CronKindPipeline, true); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertCronJob("tasks-minutely", "*/5 * * * *", CronKindTasks, false); err != nil {
		t.Fatalf("upsert disabled: %v", err)
	}

	jobs, err := s.ListCronJobs()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Name != "pipeline-minutely" {
		t.Fatalf("expected only the enabled job, got %+v", jobs)
	}

	// Upsert updates in place.
	if err := s.UpsertCronJob("pipeline-minutely", "*/2 * * * *", CronKindPipeline, true); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	jobs, _ = s.ListCronJobs()
	if len(jobs) != 1 || jobs[0].Expr != "*/2 * * * *" {
		t.Fatalf("expected updated expression, got %+v", jobs)
	}
}

func TestSeedCronJobKeepsExisting(t *testing.T) {
	s := newTestStore(t)

	if err := s.SeedCronJob("pipeline-minutely", "* * * * *", CronKindPipeline, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.UpsertCronJob("pipeline-minutely", "*/10 * * * *", CronKindPipeline, true); err != nil {
		t.Fatalf("edit: %v", err)
	}

	// Re-seeding must not clobber the operator's edit.
	if err := s.SeedCronJob("pipeline-minutely", "* * * * *", CronKindPipeline, true); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	jobs, err := s.ListCronJobs()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Expr != "*/10 * * * *" {
		t.Fatalf("expected edited expression preserved, got %+v", jobs)
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetSetting("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetSetting("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetSetting("k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, err := s.GetSetting("k")
	if err != nil || v != "v2" {
		t.Fatalf("expected v2, got %q err=%v", v, err)
	}
}
