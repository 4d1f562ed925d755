package store

import (
	"time"
)

// RawEvent is an unprocessed input captured from an external source.
type RawEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Source    string    `json:"source"`  // mail, calendar, chat, document
	Content   string    `json:"content"` // opaque JSON payload from the collector
	Status    string    `json:"status"`
	ErrorText string    `json:"error_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	EventStatusRaw        = "raw"
	EventStatusProcessing = "processing"
	EventStatusProcessed  = "processed"
	EventStatusFailed     = "failed"
)

// Summary is the structured, user-facing condensation of one RawEvent.
type Summary struct {
	ID           string    `json:"id"`
	RawEventID   string    `json:"raw_event_id"`
	UserID       string    `json:"user_id"`
	SummaryText  string    `json:"summary_text"`
	Topic        string    `json:"topic"`
	Entities     []string  `json:"entities"` // ordered, JSON array in storage
	Importance   string    `json:"importance"`
	ModelUsed    string    `json:"model_used"`
	ModelVersion string    `json:"model_version,omitempty"`
	IsViewed     bool      `json:"is_viewed"`
	ProcessedAt  time.Time `json:"processed_at"`
}

const (
	ImportanceLow    = "low"
	ImportanceMedium = "medium"
	ImportanceHigh   = "high"
)

// ActionSuggestion is a proposed next step derived from a Summary. It is not
// yet an executable Action; surfacing components materialize it on demand.
type ActionSuggestion struct {
	ID         string    `json:"id"`
	SummaryID  string    `json:"summary_id"`
	PromptText string    `json:"prompt_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Action is a concrete, potentially side-effecting operation awaiting or
// having received user confirmation.
type Action struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	Type                 string     `json:"type"`
	Payload              string     `json:"payload"` // JSON, schema depends on Type
	Status               string     `json:"status"`
	ConfirmationPrompt   string     `json:"confirmation_prompt"`
	RequiresConfirmation bool       `json:"requires_confirmation"`
	ResultMessageID      string     `json:"result_message_id,omitempty"`
	ErrorText            string     `json:"error_text,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	ExecutedAt           *time.Time `json:"executed_at,omitempty"`
}

const (
	ActionStatusPending   = "pending"
	ActionStatusConfirmed = "confirmed"
	ActionStatusExecuted  = "executed"
	ActionStatusCancelled = "cancelled"
	ActionStatusFailed    = "failed"

	ActionTypeSendEmail      = "send_email"
	ActionTypeSendChat       = "send_chat_message"
	ActionTypeCreateCalendar = "create_calendar_event"
)

// ScheduledTask is a deferred work item with a future execution time.
type ScheduledTask struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	TaskType     string    `json:"task_type"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
	IsCompleted  bool      `json:"is_completed"`
	Metadata     string    `json:"metadata"` // JSON, schema depends on TaskType
	CreatedAt    time.Time `json:"created_at"`
}

const (
	TaskTypeEmail        = "email"
	TaskTypeChatMessage  = "chat_message"
	TaskTypeReminder     = "reminder"
	TaskTypeNotification = "notification"
)

// AuditEntry is an immutable record of one stage's outcome for one unit of work.
type AuditEntry struct {
	ID         int64     `json:"id"`
	RawEventID string    `json:"raw_event_id,omitempty"`
	UserID     string    `json:"user_id"`
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	AuditSuccess = "success"
	AuditFailed  = "failed"

	StageSummarized      = "summarized"
	StageActionSuggested = "action_suggested"
	StageCompleted       = "completed"
	StageActionExecuted  = "action_executed"
	StageActionCancelled = "action_cancelled"
	StageTaskDispatched  = "task_dispatched"
)

// AuditFilter holds query parameters for the audit read path.
type AuditFilter struct {
	UserID     string
	RawEventID string
	Stage      string
	Status     string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
	Offset     int
}

// CronJob is one row of the versioned periodic-job configuration, read at
// trigger time rather than held as in-process state.
type CronJob struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Expr      string    `json:"expr"` // 5-field cron expression
	Kind      string    `json:"kind"` // "pipeline" or "tasks"
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	CronKindPipeline = "pipeline"
	CronKindTasks    = "tasks"
)

const Schema = `
CREATE TABLE IF NOT EXISTS raw_events (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	source TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'raw',
	error_text TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_raw_events_status ON raw_events(status, created_at);
CREATE INDEX IF NOT EXISTS idx_raw_events_user ON raw_events(user_id);

CREATE TABLE IF NOT EXISTS summaries (
	id TEXT PRIMARY KEY,
	raw_event_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL,
	summary_text TEXT NOT NULL,
	topic TEXT DEFAULT '',
	entities TEXT DEFAULT '[]',
	importance TEXT NOT NULL DEFAULT 'low',
	model_used TEXT DEFAULT '',
	model_version TEXT DEFAULT '',
	is_viewed BOOLEAN NOT NULL DEFAULT 0,
	processed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_summaries_event ON summaries(raw_event_id);
CREATE INDEX IF NOT EXISTS idx_summaries_user ON summaries(user_id, processed_at);

CREATE TABLE IF NOT EXISTS action_suggestions (
	id TEXT PRIMARY KEY,
	summary_id TEXT NOT NULL,
	prompt_text TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_suggestions_summary ON action_suggestions(summary_id);

CREATE TABLE IF NOT EXISTS actions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'pending',
	confirmation_prompt TEXT DEFAULT '',
	requires_confirmation BOOLEAN NOT NULL DEFAULT 1,
	result_message_id TEXT DEFAULT '',
	error_text TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	executed_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_actions_user ON actions(user_id, status);
CREATE INDEX IF NOT EXISTS idx_actions_status ON actions(status);

CREATE TABLE IF NOT EXISTS scheduled_tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	task_type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	description TEXT DEFAULT '',
	scheduled_for DATETIME NOT NULL,
	is_completed BOOLEAN NOT NULL DEFAULT 0,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_tasks_due ON scheduled_tasks(is_completed, scheduled_for);
CREATE INDEX IF NOT EXISTS idx_tasks_user ON scheduled_tasks(user_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	raw_event_id TEXT DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_log(raw_event_id);
CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_log(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_stage ON audit_log(stage, created_at);

CREATE TABLE IF NOT EXISTS cron_jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	expr TEXT NOT NULL,
	kind TEXT NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT 1,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cron_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_name TEXT NOT NULL,
	last_status TEXT DEFAULT '',
	run_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_cron_runs_job ON cron_runs(job_name, run_at);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at DATETIME
);
`
