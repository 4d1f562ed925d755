// Package action owns the confirm/cancel/execute state machine for
// user-facing actions. An action receives a user decision exactly once; the
// conditional status update in the store is what makes that hold under
// duplicate or concurrent requests.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Briefwire/Briefwire/internal/audit"
	"github.com/Briefwire/Briefwire/internal/executor"
	"github.com/Briefwire/Briefwire/internal/store"
)

// ErrPrecondition is returned when a decision arrives for an action that is
// no longer pending, or that the caller does not own. No state changes and the
// executor is not invoked.
var ErrPrecondition = errors.New("action is not awaiting a decision")

// Runner is the execution dependency; satisfied by *executor.Executor.
type Runner interface {
	Execute(ctx context.Context, action *store.Action) (*executor.Result, error)
}

// DecisionResult reports the outcome of one user decision.
type DecisionResult struct {
	ActionID string `json:"action_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// Manager drives the action lifecycle.
type Manager struct {
	store  *store.Store
	runner Runner
	ledger *audit.Ledger
}

// NewManager creates an action lifecycle manager.
func NewManager(s *store.Store, runner Runner, ledger *audit.Ledger) *Manager {
	return &Manager{store: s, runner: runner, ledger: ledger}
}

// Create persists a new action. Actions that do not require confirmation are
// executed immediately; their decision is implicit in their creation.
func (m *Manager) Create(ctx context.Context, a *store.Action) (*store.Action, error) {
	created, err := m.store.CreateAction(a)
	if err != nil {
		return nil, err
	}
	if created.RequiresConfirmation {
		return created, nil
	}

	ok, err := m.store.TransitionAction(created.ID, store.ActionStatusPending, store.ActionStatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Freshly created pending action already taken: only possible if a
		// concurrent decision raced the creation path.
		return m.store.GetAction(created.ID)
	}
	m.execute(ctx, created)
	return m.store.GetAction(created.ID)
}

// Decide applies a user decision to a pending action. A second decision on
// the same action returns ErrPrecondition without re-invoking the executor.
func (m *Manager) Decide(ctx context.Context, actionID, userID string, confirmed bool) (*DecisionResult, error) {
	a, err := m.store.GetAction(actionID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		// Ownership failures are indistinguishable from missing records to
		// the caller, so action ids cannot be probed across users.
		return nil, store.ErrNotFound
	}

	if !confirmed {
		ok, err := m.store.TransitionAction(actionID, store.ActionStatusPending, store.ActionStatusCancelled)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPrecondition
		}
		m.ledger.Success("", a.UserID, store.StageActionCancelled, fmt.Sprintf("action %s cancelled by user", actionID))
		return &DecisionResult{ActionID: actionID, Status: store.ActionStatusCancelled, Message: "action cancelled"}, nil
	}

	ok, err := m.store.TransitionAction(actionID, store.ActionStatusPending, store.ActionStatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPrecondition
	}

	m.execute(ctx, a)

	final, err := m.store.GetAction(actionID)
	if err != nil {
		return nil, err
	}
	msg := "action executed"
	if final.Status == store.ActionStatusFailed {
		msg = "execution failed: " + final.ErrorText
	}
	return &DecisionResult{ActionID: actionID, Status: final.Status, Message: msg}, nil
}

// execute performs the single execution attempt for a confirmed action and
// records the terminal status. Failures are reported, never retried here.
func (m *Manager) execute(ctx context.Context, a *store.Action) {
	if m.runner == nil {
		m.finish(a, store.ActionStatusFailed, "", "no executor configured")
		return
	}
	res, err := m.runner.Execute(ctx, a)
	if err != nil {
		m.finish(a, store.ActionStatusFailed, "", err.Error())
		return
	}
	m.finish(a, store.ActionStatusExecuted, res.ProviderMessageID, "")
}

func (m *Manager) finish(a *store.Action, status, messageID, errText string) {
	if err := m.store.FinishActionExecution(a.ID, status, messageID, errText); err != nil {
		slog.Error("Action status write failed", "action", a.ID, "status", status, "error", err)
	}
	if status == store.ActionStatusExecuted {
		m.ledger.Success("", a.UserID, store.StageActionExecuted, fmt.Sprintf("action %s (%s) executed", a.ID, a.Type))
		return
	}
	m.ledger.Failure("", a.UserID, store.StageActionExecuted, fmt.Sprintf("action %s (%s) failed: %s", a.ID, a.Type, errText))
}
