package audit

import (
	"path/filepath"
	"testing"

	"github.com/Briefwire/Briefwire/internal/store"
)

func newTestLedger(t *testing.T) (*Ledger, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return NewLedger(s), s
}

func TestLedgerAppendAndQuery(t *testing.T) {
	l, _ := newTestLedger(t)

	l.Success("e1", "u1", store.StageSummarized, "done")
	l.Failure("e1", "u1", store.StageActionSuggested, "provider down")

	entries, err := l.Query(store.AuditFilter{RawEventID: "e1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	failed, _ := l.Query(store.AuditFilter{RawEventID: "e1", Status: store.AuditFailed})
	if len(failed) != 1 || failed[0].Stage != store.StageActionSuggested {
		t.Fatalf("unexpected failed entries: %+v", failed)
	}
}

func TestLedgerWithoutStoreNeverPanics(t *testing.T) {
	l := NewLedger(nil)
	l.Success("e1", "u1", store.StageSummarized, "dropped")
	l.Failure("e1", "u1", store.StageSummarized, "dropped")

	entries, err := l.Query(store.AuditFilter{})
	if err != nil || entries != nil {
		t.Fatalf("expected empty result, got %v %v", entries, err)
	}
}
