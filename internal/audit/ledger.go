// Package audit provides the append-only ledger of stage outcomes. Writes are
// fire-and-forget: a ledger failure is logged but never propagated, so an
// observability problem cannot abort the stage that reported it.
package audit

import (
	"log/slog"

	"github.com/Briefwire/Briefwire/internal/store"
)

// Ledger appends stage outcomes to the audit log.
type Ledger struct {
	store *store.Store
}

// NewLedger creates a ledger over the given store. Store may be nil, in which
// case entries go to the process log only.
func NewLedger(s *store.Store) *Ledger {
	return &Ledger{store: s}
}

// Append records one stage outcome. Never returns an error.
func (l *Ledger) Append(entry *store.AuditEntry) {
	if l == nil || l.store == nil {
		slog.Warn("Audit entry dropped: no store",
			"stage", entry.Stage, "status", entry.Status, "event", entry.RawEventID)
		return
	}
	if err := l.store.InsertAuditEntry(entry); err != nil {
		// Fallback channel: the write failure itself is logged, not raised.
		slog.Error("Audit write failed",
			"stage", entry.Stage, "status", entry.Status, "event", entry.RawEventID, "error", err)
	}
}

// Success appends a success entry for a stage.
func (l *Ledger) Success(rawEventID, userID, stage, message string) {
	l.Append(&store.AuditEntry{
		RawEventID: rawEventID,
		UserID:     userID,
		Stage:      stage,
		Status:     store.AuditSuccess,
		Message:    message,
	})
}

// Failure appends a failed entry for a stage.
func (l *Ledger) Failure(rawEventID, userID, stage, message string) {
	l.Append(&store.AuditEntry{
		RawEventID: rawEventID,
		UserID:     userID,
		Stage:      stage,
		Status:     store.AuditFailed,
		Message:    message,
	})
}

// Query returns audit entries for observability tooling.
func (l *Ledger) Query(f store.AuditFilter) ([]store.AuditEntry, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.QueryAudit(f)
}
