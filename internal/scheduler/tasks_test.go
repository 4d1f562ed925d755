package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Briefwire/Briefwire/internal/audit"
	"github.com/Briefwire/Briefwire/internal/senders"
	"github.com/Briefwire/Briefwire/internal/store"
	"github.com/Briefwire/Briefwire/internal/summarize"
)

type fakeMail struct {
	calls int
	last  *senders.MailRequest
	err   error
}

func (f *fakeMail) SendMail(ctx context.Context, req *senders.MailRequest) (string, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return "", f.err
	}
	return "mail-1", nil
}

type fakeChat struct {
	calls int
	last  *senders.ChatRequest
}

func (f *fakeChat) SendChat(ctx context.Context, req *senders.ChatRequest) (string, error) {
	f.calls++
	f.last = req
	return "chat-1", nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dueTask(t *testing.T, s *store.Store, taskType, title, metadata string) *store.ScheduledTask {
	t.Helper()
	task, err := s.CreateScheduledTask(&store.ScheduledTask{
		UserID:       "u1",
		TaskType:     taskType,
		Title:        title,
		ScheduledFor: time.Now().UTC().Add(-time.Minute),
		Metadata:     metadata,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestRunDueTasksEmail(t *testing.T) {
	s := newTestStore(t)
	mail := &fakeMail{}
	r := NewTaskRunner(s, mail, nil, audit.NewLedger(s))

	task := dueTask(t, s, store.TaskTypeEmail, "follow up", `{"to":"dana@example.com","body":"ping"}`)

	res, err := r.RunDueTasks(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Processed != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if mail.calls != 1 {
		t.Fatalf("expected one send, got %d", mail.calls)
	}
	if mail.last.Subject != "follow up" {
		t.Fatalf("subject must default to the task title, got %q", mail.last.Subject)
	}

	got, _ := s.GetScheduledTask(task.ID)
	if !got.IsCompleted {
		t.Fatalf("dispatched task must be completed")
	}
}

func TestRunDueTasksChatMessage(t *testing.T) {
	s := newTestStore(t)
	chat := &fakeChat{}
	r := NewTaskRunner(s, nil, chat, audit.NewLedger(s))

	task, err := s.CreateScheduledTask(&store.ScheduledTask{
		UserID:       "u1",
		TaskType:     store.TaskTypeChatMessage,
		Title:        "standup nudge",
		Description:  "standup in 5",
		ScheduledFor: time.Now().UTC().Add(-time.Minute),
		Metadata:     `{"chat_id":"C123"}`,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := r.RunDueTasks(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if chat.calls != 1 {
		t.Fatalf("expected one chat send, got %d", chat.calls)
	}
	if chat.last.Text != "standup in 5" {
		t.Fatalf("text must default to the description, got %q", chat.last.Text)
	}
	got, _ := s.GetScheduledTask(task.ID)
	if !got.IsCompleted {
		t.Fatalf("task must be completed")
	}
}

func TestRunDueTasksReminderCreatesSummary(t *testing.T) {
	s := newTestStore(t)
	r := NewTaskRunner(s, nil, nil, audit.NewLedger(s))

	dueTask(t, s, store.TaskTypeReminder, "water plants", "{}")

	if _, err := r.RunDueTasks(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("run: %v", err)
	}

	sums, err := s.ListSummaries("u1", 10, 0)
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("expected 1 surfaced summary, got %d", len(sums))
	}
	if sums[0].ModelUsed != "scheduler" || sums[0].Importance != store.ImportanceMedium {
		t.Fatalf("unexpected reminder summary: %+v", sums[0])
	}
	if sums[0].SummaryText != "water plants" {
		t.Fatalf("unexpected text: %q", sums[0].SummaryText)
	}
}

func TestRunDueTasksNotificationIsLowImportance(t *testing.T) {
	s := newTestStore(t)
	r := NewTaskRunner(s, nil, nil, audit.NewLedger(s))

	dueTask(t, s, store.TaskTypeNotification, "digest ready", "{}")

	if _, err := r.RunDueTasks(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("run: %v", err)
	}
	sums, _ := s.ListSummaries("u1", 10, 0)
	if len(sums) != 1 || sums[0].Importance != store.ImportanceLow {
		t.Fatalf("expected low-importance notification summary, got %+v", sums)
	}
}

func TestRunDueTasksFailureLeavesTaskDue(t *testing.T) {
	s := newTestStore(t)
	mail := &fakeMail{err: fmt.Errorf("relay down")}
	r := NewTaskRunner(s, mail, nil, audit.NewLedger(s))

	task := dueTask(t, s, store.TaskTypeEmail, "retry me", `{"to":"x@example.com"}`)

	res, err := r.RunDueTasks(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Failed != 1 || res.Processed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, _ := s.GetScheduledTask(task.ID)
	if got.IsCompleted {
		t.Fatalf("failed task must stay due for retry")
	}

	// Second run retries the same task after the sender recovers.
	mail.err = nil
	res, err = r.RunDueTasks(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Processed != 1 {
		t.Fatalf("expected retry to succeed, got %+v", res)
	}
	if mail.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", mail.calls)
	}

	entries, _ := s.QueryAudit(store.AuditFilter{Stage: store.StageTaskDispatched})
	if len(entries) != 2 {
		t.Fatalf("expected one audit entry per attempt, got %d", len(entries))
	}
}

func TestRunDueTasksUnknownTypeFails(t *testing.T) {
	s := newTestStore(t)
	r := NewTaskRunner(s, nil, nil, audit.NewLedger(s))

	task := dueTask(t, s, "teleport", "beam me up", "{}")

	res, err := r.RunDueTasks(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("expected failure for unknown type, got %+v", res)
	}
	got, _ := s.GetScheduledTask(task.ID)
	if got.IsCompleted {
		t.Fatalf("unknown-type task must not complete")
	}
}

func TestRunDueTasksTruncatesLongReminder(t *testing.T) {
	s := newTestStore(t)
	r := NewTaskRunner(s, nil, nil, audit.NewLedger(s))

	long := ""
	for i := 0; i < 50; i++ {
		long += "very long "
	}
	task, err := s.CreateScheduledTask(&store.ScheduledTask{
		UserID:       "u1",
		TaskType:     store.TaskTypeReminder,
		Title:        "note",
		Description:  long,
		ScheduledFor: time.Now().UTC().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = task

	if _, err := r.RunDueTasks(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("run: %v", err)
	}
	sums, _ := s.ListSummaries("u1", 10, 0)
	if len(sums) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(sums))
	}
	if got := len([]rune(sums[0].SummaryText)); got > summarize.MaxSummaryChars {
		t.Fatalf("summary exceeds cap: %d runes", got)
	}
}
