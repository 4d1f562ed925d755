// Package store provides the SQLite persistence layer for the event-to-action
// pipeline: raw events, summaries, suggestions, actions, scheduled tasks, and
// the audit log.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// Best-effort migrations for existing dbs (no-op if column exists).
	_, _ = db.Exec(`ALTER TABLE actions ADD COLUMN result_message_id TEXT DEFAULT ''`)
	_, _ = db.Exec(`ALTER TABLE raw_events ADD COLUMN error_text TEXT DEFAULT ''`)
	_, _ = db.Exec(`ALTER TABLE summaries ADD COLUMN model_version TEXT DEFAULT ''`)

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for shared access.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}

func newID() string {
	return uuid.NewString()
}

// --- Raw events ---

// InsertRawEvent inserts a collector event. ID is generated if empty; status
// always starts at raw.
func (s *Store) InsertRawEvent(evt *RawEvent) (*RawEvent, error) {
	if evt.UserID == "" || evt.Source == "" {
		return nil, fmt.Errorf("insert raw event: user_id and source are required")
	}
	if evt.ID == "" {
		evt.ID = newID()
	}
	evt.Status = EventStatusRaw
	_, err := s.db.Exec(`
		INSERT INTO raw_events (id, user_id, source, content, status) VALUES (?, ?, ?, ?, ?)
	`, evt.ID, evt.UserID, evt.Source, evt.Content, evt.Status)
	if err != nil {
		return nil, fmt.Errorf("insert raw event: %w", err)
	}
	return s.GetRawEvent(evt.ID)
}

// GetRawEvent returns one raw event by id.
func (s *Store) GetRawEvent(id string) (*RawEvent, error) {
	var e RawEvent
	err := s.db.QueryRow(`
		SELECT id, user_id, source, COALESCE(content,''), status, COALESCE(error_text,''), created_at
		FROM raw_events WHERE id = ?
	`, id).Scan(&e.ID, &e.UserID, &e.Source, &e.Content, &e.Status, &e.ErrorText, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get raw event: %w", err)
	}
	return &e, nil
}

// ListUnprocessedEvents returns up to limit events still in raw status,
// oldest first.
func (s *Store) ListUnprocessedEvents(limit int) ([]RawEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, user_id, source, COALESCE(content,''), status, COALESCE(error_text,''), created_at
		FROM raw_events WHERE status = ? ORDER BY created_at ASC LIMIT ?
	`, EventStatusRaw, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []RawEvent
	for rows.Next() {
		var e RawEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Source, &e.Content, &e.Status, &e.ErrorText, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ClaimRawEvent atomically moves one event from raw to processing. Returns
// false when another run already claimed it. This conditional update is the
// sole cross-run concurrency guard for the pipeline.
func (s *Store) ClaimRawEvent(id string) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE raw_events SET status = ? WHERE id = ? AND status = ?
	`, EventStatusProcessing, id, EventStatusRaw)
	if err != nil {
		return false, fmt.Errorf("claim raw event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim raw event: %w", err)
	}
	return n == 1, nil
}

// FinishRawEvent moves a processing event to its terminal status.
func (s *Store) FinishRawEvent(id, status, errText string) error {
	if status != EventStatusProcessed && status != EventStatusFailed {
		return fmt.Errorf("finish raw event: invalid terminal status %q", status)
	}
	res, err := s.db.Exec(`
		UPDATE raw_events SET status = ?, error_text = ? WHERE id = ? AND status = ?
	`, status, errText, id, EventStatusProcessing)
	if err != nil {
		return fmt.Errorf("finish raw event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish raw event: %s is not in processing state", id)
	}
	return nil
}

// --- Summaries ---

// InsertSummary persists a summary for a raw event. ID generated if empty.
func (s *Store) InsertSummary(sum *Summary) (*Summary, error) {
	if sum.ID == "" {
		sum.ID = newID()
	}
	if sum.Importance == "" {
		sum.Importance = ImportanceLow
	}
	if sum.Entities == nil {
		sum.Entities = []string{}
	}
	entities, err := json.Marshal(sum.Entities)
	if err != nil {
		return nil, fmt.Errorf("insert summary: marshal entities: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO summaries (id, raw_event_id, user_id, summary_text, topic, entities, importance, model_used, model_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sum.ID, sum.RawEventID, sum.UserID, sum.SummaryText, sum.Topic, string(entities), sum.Importance, sum.ModelUsed, sum.ModelVersion)
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	return s.GetSummary(sum.ID)
}

// GetSummary returns one summary by id.
func (s *Store) GetSummary(id string) (*Summary, error) {
	row := s.db.QueryRow(`
		SELECT id, raw_event_id, user_id, summary_text, COALESCE(topic,''), COALESCE(entities,'[]'),
			importance, COALESCE(model_used,''), COALESCE(model_version,''), is_viewed, processed_at
		FROM summaries WHERE id = ?
	`, id)
	return scanSummary(row)
}

// GetSummaryByEvent returns the summary owned by a raw event, if any.
func (s *Store) GetSummaryByEvent(rawEventID string) (*Summary, error) {
	row := s.db.QueryRow(`
		SELECT id, raw_event_id, user_id, summary_text, COALESCE(topic,''), COALESCE(entities,'[]'),
			importance, COALESCE(model_used,''), COALESCE(model_version,''), is_viewed, processed_at
		FROM summaries WHERE raw_event_id = ?
	`, rawEventID)
	return scanSummary(row)
}

func scanSummary(row *sql.Row) (*Summary, error) {
	var sum Summary
	var entities string
	err := row.Scan(&sum.ID, &sum.RawEventID, &sum.UserID, &sum.SummaryText, &sum.Topic,
		&entities, &sum.Importance, &sum.ModelUsed, &sum.ModelVersion, &sum.IsViewed, &sum.ProcessedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	if err := json.Unmarshal([]byte(entities), &sum.Entities); err != nil {
		sum.Entities = nil
	}
	return &sum, nil
}

// ListSummaries returns a user's summaries, newest first.
func (s *Store) ListSummaries(userID string, limit, offset int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, raw_event_id, user_id, summary_text, COALESCE(topic,''), COALESCE(entities,'[]'),
			importance, COALESCE(model_used,''), COALESCE(model_version,''), is_viewed, processed_at
		FROM summaries WHERE user_id = ? ORDER BY processed_at DESC LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var entities string
		if err := rows.Scan(&sum.ID, &sum.RawEventID, &sum.UserID, &sum.SummaryText, &sum.Topic,
			&entities, &sum.Importance, &sum.ModelUsed, &sum.ModelVersion, &sum.IsViewed, &sum.ProcessedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(entities), &sum.Entities); err != nil {
			sum.Entities = nil
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// MarkSummaryViewed flips is_viewed. Called by the consuming surface, not the core.
func (s *Store) MarkSummaryViewed(id string) error {
	_, err := s.db.Exec(`UPDATE summaries SET is_viewed = 1 WHERE id = ?`, id)
	return err
}

// --- Action suggestions ---

// InsertSuggestion persists one suggestion for a summary.
func (s *Store) InsertSuggestion(sg *ActionSuggestion) (*ActionSuggestion, error) {
	if sg.ID == "" {
		sg.ID = newID()
	}
	_, err := s.db.Exec(`
		INSERT INTO action_suggestions (id, summary_id, prompt_text) VALUES (?, ?, ?)
	`, sg.ID, sg.SummaryID, sg.PromptText)
	if err != nil {
		return nil, fmt.Errorf("insert suggestion: %w", err)
	}
	return sg, nil
}

// ListSuggestionsBySummary returns all suggestions for a summary, oldest first.
func (s *Store) ListSuggestionsBySummary(summaryID string) ([]ActionSuggestion, error) {
	rows, err := s.db.Query(`
		SELECT id, summary_id, prompt_text, created_at
		FROM action_suggestions WHERE summary_id = ? ORDER BY created_at ASC
	`, summaryID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var out []ActionSuggestion
	for rows.Next() {
		var sg ActionSuggestion
		if err := rows.Scan(&sg.ID, &sg.SummaryID, &sg.PromptText, &sg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

// --- Actions ---

// CreateAction inserts a new action in pending status.
func (s *Store) CreateAction(a *Action) (*Action, error) {
	if a.UserID == "" || a.Type == "" {
		return nil, fmt.Errorf("create action: user_id and type are required")
	}
	if a.ID == "" {
		a.ID = newID()
	}
	a.Status = ActionStatusPending
	if a.Payload == "" {
		a.Payload = "{}"
	}
	_, err := s.db.Exec(`
		INSERT INTO actions (id, user_id, type, payload, status, confirmation_prompt, requires_confirmation)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Type, a.Payload, a.Status, a.ConfirmationPrompt, a.RequiresConfirmation)
	if err != nil {
		return nil, fmt.Errorf("create action: %w", err)
	}
	return s.GetAction(a.ID)
}

// GetAction returns one action by id.
func (s *Store) GetAction(id string) (*Action, error) {
	var a Action
	var executedAt sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, user_id, type, COALESCE(payload,'{}'), status, COALESCE(confirmation_prompt,''),
			requires_confirmation, COALESCE(result_message_id,''), COALESCE(error_text,''), created_at, executed_at
		FROM actions WHERE id = ?
	`, id).Scan(&a.ID, &a.UserID, &a.Type, &a.Payload, &a.Status, &a.ConfirmationPrompt,
		&a.RequiresConfirmation, &a.ResultMessageID, &a.ErrorText, &a.CreatedAt, &executedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	if executedAt.Valid {
		a.ExecutedAt = &executedAt.Time
	}
	return &a, nil
}

// TransitionAction atomically moves an action from one status to another.
// Returns false when the action was not in the expected from status, which is
// how the single-decision invariant is enforced under concurrent requests.
func (s *Store) TransitionAction(id, from, to string) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE actions SET status = ? WHERE id = ? AND status = ?
	`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transition action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition action: %w", err)
	}
	return n == 1, nil
}

// FinishActionExecution records the outcome of the single execution attempt.
func (s *Store) FinishActionExecution(id, status, resultMessageID, errText string) error {
	if status != ActionStatusExecuted && status != ActionStatusFailed {
		return fmt.Errorf("finish action: invalid terminal status %q", status)
	}
	_, err := s.db.Exec(`
		UPDATE actions SET status = ?, result_message_id = ?, error_text = ?, executed_at = datetime('now')
		WHERE id = ? AND status = ?
	`, status, resultMessageID, errText, id, ActionStatusConfirmed)
	if err != nil {
		return fmt.Errorf("finish action: %w", err)
	}
	return nil
}

// ListActions returns actions filtered by optional user and status.
func (s *Store) ListActions(userID, status string, limit, offset int) ([]Action, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, type, COALESCE(payload,'{}'), status, COALESCE(confirmation_prompt,''),
			requires_confirmation, COALESCE(result_message_id,''), COALESCE(error_text,''), created_at, executed_at
		FROM actions WHERE 1=1`
	args := []interface{}{}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var a Action
		var executedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &a.Payload, &a.Status, &a.ConfirmationPrompt,
			&a.RequiresConfirmation, &a.ResultMessageID, &a.ErrorText, &a.CreatedAt, &executedAt); err != nil {
			return nil, err
		}
		if executedAt.Valid {
			a.ExecutedAt = &executedAt.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Scheduled tasks ---

// CreateScheduledTask inserts a deferred work item.
func (s *Store) CreateScheduledTask(t *ScheduledTask) (*ScheduledTask, error) {
	if t.UserID == "" || t.TaskType == "" {
		return nil, fmt.Errorf("create scheduled task: user_id and task_type are required")
	}
	if t.ScheduledFor.IsZero() {
		return nil, fmt.Errorf("create scheduled task: scheduled_for is required")
	}
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Metadata == "" {
		t.Metadata = "{}"
	}
	_, err := s.db.Exec(`
		INSERT INTO scheduled_tasks (id, user_id, task_type, title, description, scheduled_for, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.TaskType, t.Title, t.Description, t.ScheduledFor.UTC(), t.Metadata)
	if err != nil {
		return nil, fmt.Errorf("create scheduled task: %w", err)
	}
	return s.GetScheduledTask(t.ID)
}

// GetScheduledTask returns one task by id.
func (s *Store) GetScheduledTask(id string) (*ScheduledTask, error) {
	var t ScheduledTask
	err := s.db.QueryRow(`
		SELECT id, user_id, task_type, COALESCE(title,''), COALESCE(description,''),
			scheduled_for, is_completed, COALESCE(metadata,'{}'), created_at
		FROM scheduled_tasks WHERE id = ?
	`, id).Scan(&t.ID, &t.UserID, &t.TaskType, &t.Title, &t.Description,
		&t.ScheduledFor, &t.IsCompleted, &t.Metadata, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled task: %w", err)
	}
	return &t, nil
}

// ListDueTasks returns incomplete tasks due as of now, earliest first.
func (s *Store) ListDueTasks(now time.Time, limit int) ([]ScheduledTask, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, user_id, task_type, COALESCE(title,''), COALESCE(description,''),
			scheduled_for, is_completed, COALESCE(metadata,'{}'), created_at
		FROM scheduled_tasks
		WHERE is_completed = 0 AND scheduled_for <= ?
		ORDER BY scheduled_for ASC LIMIT ?
	`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	var out []ScheduledTask
	for rows.Next() {
		var t ScheduledTask
		if err := rows.Scan(&t.ID, &t.UserID, &t.TaskType, &t.Title, &t.Description,
			&t.ScheduledFor, &t.IsCompleted, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CompleteTask flips is_completed after a successful dispatch.
func (s *Store) CompleteTask(id string) error {
	res, err := s.db.Exec(`UPDATE scheduled_tasks SET is_completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Audit log ---

// InsertAuditEntry appends one row to the audit log.
func (s *Store) InsertAuditEntry(e *AuditEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO audit_log (raw_event_id, user_id, stage, status, message)
		VALUES (?, ?, ?, ?, ?)
	`, e.RawEventID, e.UserID, e.Stage, e.Status, e.Message)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns audit entries matching the filter, newest first.
func (s *Store) QueryAudit(f AuditFilter) ([]AuditEntry, error) {
	query := `SELECT id, COALESCE(raw_event_id,''), COALESCE(user_id,''), stage, status, COALESCE(message,''), created_at
		FROM audit_log WHERE 1=1`
	args := []interface{}{}
	if f.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, f.UserID)
	}
	if f.RawEventID != "" {
		query += " AND raw_event_id = ?"
		args = append(args, f.RawEventID)
	}
	if f.Stage != "" {
		query += " AND stage = ?"
		args = append(args, f.Stage)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.StartAt != nil {
		query += " AND created_at >= ?"
		args = append(args, *f.StartAt)
	}
	if f.EndAt != nil {
		query += " AND created_at <= ?"
		args = append(args, *f.EndAt)
	}
	query += " ORDER BY created_at DESC, id DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.RawEventID, &e.UserID, &e.Stage, &e.Status, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// QueueDepths reports how much work is waiting: raw events not yet picked up
// and actions awaiting a user decision.
func (s *Store) QueueDepths() (rawEvents, pendingActions int, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM raw_events WHERE status = ?`, EventStatusRaw).Scan(&rawEvents); err != nil {
		return 0, 0, fmt.Errorf("count raw events: %w", err)
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM actions WHERE status = ?`, ActionStatusPending).Scan(&pendingActions); err != nil {
		return 0, 0, fmt.Errorf("count pending actions: %w", err)
	}
	return rawEvents, pendingActions, nil
}

// --- Cron configuration ---

// UpsertCronJob creates or updates one periodic-job configuration row.
func (s *Store) UpsertCronJob(name, expr, kind string, enabled bool) error {
	_, err := s.db.Exec(`
		INSERT INTO cron_jobs (name, expr, kind, enabled, updated_at) VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET expr = excluded.expr, kind = excluded.kind,
			enabled = excluded.enabled, updated_at = excluded.updated_at
	`, name, expr, kind, enabled)
	if err != nil {
		return fmt.Errorf("upsert cron job: %w", err)
	}
	return nil
}

// SeedCronJob inserts a job configuration only if no row with that name
// exists. Operator edits to an existing job survive restarts.
func (s *Store) SeedCronJob(name, expr, kind string, enabled bool) error {
	_, err := s.db.Exec(`
		INSERT INTO cron_jobs (name, expr, kind, enabled, updated_at) VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(name) DO NOTHING
	`, name, expr, kind, enabled)
	if err != nil {
		return fmt.Errorf("seed cron job: %w", err)
	}
	return nil
}

// ListCronJobs returns enabled job configurations. Read at trigger time so the
// job list is never in-process state.
func (s *Store) ListCronJobs() ([]CronJob, error) {
	rows, err := s.db.Query(`
		SELECT id, name, expr, kind, enabled, updated_at FROM cron_jobs WHERE enabled = 1 ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list cron jobs: %w", err)
	}
	defer rows.Close()

	var out []CronJob
	for rows.Next() {
		var j CronJob
		if err := rows.Scan(&j.ID, &j.Name, &j.Expr, &j.Kind, &j.Enabled, &j.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// LogCronRun persists one run status (best-effort observability).
func (s *Store) LogCronRun(jobName, status string) error {
	_, err := s.db.Exec(`INSERT INTO cron_runs (job_name, last_status) VALUES (?, ?)`, jobName, status)
	return err
}

// --- Settings ---

// GetSetting returns a setting value by key.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetSetting persists a setting value.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	return err
}
