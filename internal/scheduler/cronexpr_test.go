package scheduler

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, expr string) *CronExpr {
	t.Helper()
	c, err := ParseCron(expr)
	if err != nil {
		t.Fatalf("parse %q: %v", expr, err)
	}
	return c
}

func TestParseCronMatches(t *testing.T) {
	// Tuesday 2026-09-01 14:30 UTC
	at := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		expr string
		want bool
	}{
		{"* * * * *", true},
		{"30 14 * * *", true},
		{"30 14 1 9 *", true},
		{"30 14 * * 2", true},
		{"31 14 * * *", false},
		{"30 15 * * *", false},
		{"*/15 * * * *", true},
		{"*/7 * * * *", false},
		{"0-45 14 * * *", true},
		{"0-29 14 * * *", false},
		{"10-40/10 14 * * *", true},
		{"0,15,30 * * * *", true},
		{"0,15,45 * * * *", false},
		{"* * * * 0,6", false},
	}
	for _, c := range cases {
		if got := mustParse(t, c.expr).Matches(at); got != c.want {
			t.Errorf("%q Matches(%v) = %v, want %v", c.expr, at, got, c.want)
		}
	}
}

func TestParseCronErrors(t *testing.T) {
	bad := []string{
		"",
		"* * * *",
		"* * * * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * * 13 *",
		"* * * * 7",
		"a * * * *",
		"*/0 * * * *",
		"5-2 * * * *",
	}
	for _, expr := range bad {
		if _, err := ParseCron(expr); err == nil {
			t.Errorf("expected parse error for %q", expr)
		}
	}
}

func TestSemaphore(t *testing.T) {
	sem := NewSemaphore(2)
	if !sem.TryAcquire() || !sem.TryAcquire() {
		t.Fatalf("expected two acquisitions")
	}
	if sem.TryAcquire() {
		t.Fatalf("expected third acquisition to fail")
	}
	if sem.Available() != 0 {
		t.Fatalf("expected no free slots, got %d", sem.Available())
	}
	sem.Release()
	if !sem.TryAcquire() {
		t.Fatalf("expected acquisition after release")
	}
}

func TestFileLock(t *testing.T) {
	path := t.TempDir() + "/test.lock"
	l1 := NewFileLock(path)
	l2 := NewFileLock(path)

	ok, err := l1.TryLock()
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}
	ok, err = l2.TryLock()
	if err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if ok {
		t.Fatalf("expected second lock to fail while held")
	}
	if err := l1.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	ok, err = l2.TryLock()
	if err != nil || !ok {
		t.Fatalf("lock after release: ok=%v err=%v", ok, err)
	}
	_ = l2.Unlock()
}
