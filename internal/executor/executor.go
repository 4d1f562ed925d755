// Package executor performs the side-effecting call for a confirmed action.
// It is stateless dispatch by action type: one invocation makes exactly one
// outbound call under a bounded timeout.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Briefwire/Briefwire/internal/senders"
	"github.com/Briefwire/Briefwire/internal/store"
)

// Result reports the outcome of one execution attempt.
type Result struct {
	ProviderMessageID string
	Detail            string
}

// Executor dispatches confirmed actions to sender collaborators.
type Executor struct {
	mail     senders.MailSender
	chat     senders.ChatSender
	calendar senders.CalendarSender
	timeout  time.Duration
}

// New creates an executor. Any sender may be nil; executing an action whose
// sender is missing fails with a configuration error.
func New(mail senders.MailSender, chat senders.ChatSender, calendar senders.CalendarSender, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{mail: mail, chat: chat, calendar: calendar, timeout: timeout}
}

// Execute performs the single outbound call for an action. The payload is
// decoded and validated per type at this boundary before any dispatch.
func (e *Executor) Execute(ctx context.Context, action *store.Action) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	switch action.Type {
	case store.ActionTypeSendEmail:
		var req senders.MailRequest
		if err := decodePayload(action.Payload, &req); err != nil {
			return nil, err
		}
		req.UserID = action.UserID
		if strings.TrimSpace(req.To) == "" {
			return nil, fmt.Errorf("action payload: \"to\" is required for %s", action.Type)
		}
		if e.mail == nil {
			return nil, fmt.Errorf("no mail sender configured")
		}
		id, err := e.mail.SendMail(ctx, &req)
		if err != nil {
			return nil, err
		}
		return &Result{ProviderMessageID: id, Detail: "mail sent to " + req.To}, nil

	case store.ActionTypeSendChat:
		var req senders.ChatRequest
		if err := decodePayload(action.Payload, &req); err != nil {
			return nil, err
		}
		req.UserID = action.UserID
		if strings.TrimSpace(req.ChatID) == "" || strings.TrimSpace(req.Text) == "" {
			return nil, fmt.Errorf("action payload: \"chat_id\" and \"text\" are required for %s", action.Type)
		}
		if e.chat == nil {
			return nil, fmt.Errorf("no chat sender configured")
		}
		id, err := e.chat.SendChat(ctx, &req)
		if err != nil {
			return nil, err
		}
		return &Result{ProviderMessageID: id, Detail: "chat message sent to " + req.ChatID}, nil

	case store.ActionTypeCreateCalendar:
		var req senders.CalendarRequest
		if err := decodePayload(action.Payload, &req); err != nil {
			return nil, err
		}
		req.UserID = action.UserID
		if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.StartsAt) == "" {
			return nil, fmt.Errorf("action payload: \"title\" and \"starts_at\" are required for %s", action.Type)
		}
		if e.calendar == nil {
			return nil, fmt.Errorf("no calendar sender configured")
		}
		id, err := e.calendar.CreateEvent(ctx, &req)
		if err != nil {
			return nil, err
		}
		return &Result{ProviderMessageID: id, Detail: "calendar entry created: " + req.Title}, nil

	default:
		return nil, fmt.Errorf("unknown action type: %q", action.Type)
	}
}

func decodePayload(payload string, v any) error {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("action payload: %w", err)
	}
	return nil
}
