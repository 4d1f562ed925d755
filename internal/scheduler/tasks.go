// Package scheduler runs deferred work: the due-task dispatcher and the cron
// tick loop that triggers it and the event pipeline on configured intervals.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Briefwire/Briefwire/internal/audit"
	"github.com/Briefwire/Briefwire/internal/senders"
	"github.com/Briefwire/Briefwire/internal/store"
	"github.com/Briefwire/Briefwire/internal/summarize"
)

// TaskRunResult reports one due-task run.
type TaskRunResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// TaskRunner polls for due scheduled tasks and dispatches them by type.
// Completion is recorded only after a successful dispatch, so a failed send
// is retried on the next poll: at-least-once, duplicates possible when the
// send succeeds but the completion write fails.
type TaskRunner struct {
	store  *store.Store
	mail   senders.MailSender
	chat   senders.ChatSender
	ledger *audit.Ledger
	limit  int
}

// NewTaskRunner creates a due-task runner.
func NewTaskRunner(s *store.Store, mail senders.MailSender, chat senders.ChatSender, ledger *audit.Ledger) *TaskRunner {
	return &TaskRunner{store: s, mail: mail, chat: chat, ledger: ledger, limit: 50}
}

// RunDueTasks dispatches every incomplete task due as of now, earliest first.
// Per-task failures are isolated and audited; they never abort the run.
func (r *TaskRunner) RunDueTasks(ctx context.Context, now time.Time) (*TaskRunResult, error) {
	tasks, err := r.store.ListDueTasks(now, r.limit)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	result := &TaskRunResult{}
	for _, task := range tasks {
		if err := r.dispatch(ctx, &task); err != nil {
			result.Failed++
			r.ledger.Failure("", task.UserID, store.StageTaskDispatched,
				fmt.Sprintf("task %s (%s) failed: %s", task.ID, task.TaskType, err))
			slog.Warn("Scheduled task dispatch failed", "task", task.ID, "type", task.TaskType, "error", err)
			continue
		}
		if err := r.store.CompleteTask(task.ID); err != nil {
			// The side effect happened; the task stays due and will be
			// re-dispatched. That duplicate risk is the documented tradeoff.
			slog.Error("Task completion write failed after successful dispatch", "task", task.ID, "error", err)
		}
		result.Processed++
		r.ledger.Success("", task.UserID, store.StageTaskDispatched,
			fmt.Sprintf("task %s (%s) dispatched", task.ID, task.TaskType))
	}
	return result, nil
}

func (r *TaskRunner) dispatch(ctx context.Context, task *store.ScheduledTask) error {
	switch task.TaskType {
	case store.TaskTypeEmail:
		if r.mail == nil {
			return fmt.Errorf("no mail sender configured")
		}
		var req senders.MailRequest
		if err := json.Unmarshal([]byte(task.Metadata), &req); err != nil {
			return fmt.Errorf("task metadata: %w", err)
		}
		req.UserID = task.UserID
		if req.Subject == "" {
			req.Subject = task.Title
		}
		_, err := r.mail.SendMail(ctx, &req)
		return err

	case store.TaskTypeChatMessage:
		if r.chat == nil {
			return fmt.Errorf("no chat sender configured")
		}
		var req senders.ChatRequest
		if err := json.Unmarshal([]byte(task.Metadata), &req); err != nil {
			return fmt.Errorf("task metadata: %w", err)
		}
		req.UserID = task.UserID
		if req.Text == "" {
			req.Text = task.Description
		}
		_, err := r.chat.SendChat(ctx, &req)
		return err

	case store.TaskTypeReminder, store.TaskTypeNotification:
		// No external call: surface the task as a user-visible summary row.
		importance := store.ImportanceLow
		if task.TaskType == store.TaskTypeReminder {
			importance = store.ImportanceMedium
		}
		text := task.Title
		if task.Description != "" {
			text = task.Title + ": " + task.Description
		}
		_, err := r.store.InsertSummary(&store.Summary{
			UserID:      task.UserID,
			SummaryText: summarize.Truncate(text, summarize.MaxSummaryChars),
			Topic:       task.TaskType,
			Importance:  importance,
			ModelUsed:   "scheduler",
		})
		return err

	default:
		return fmt.Errorf("unknown task type: %q", task.TaskType)
	}
}
