// Package senders defines the outbound collaborator interfaces (mail, chat,
// calendar) and their concrete clients. Each call is a single outbound request
// that returns a provider message id or an error; senders never retry
// internally, preserving the one-attempt-per-confirmation invariant.
package senders

import (
	"context"
)

// MailRequest is a typed outbound mail send.
type MailRequest struct {
	UserID  string `json:"user_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ChatRequest is a typed outbound chat message.
type ChatRequest struct {
	UserID   string `json:"user_id"`
	ChatID   string `json:"chat_id"`
	ThreadID string `json:"thread_id,omitempty"`
	Text     string `json:"text"`
}

// CalendarRequest is a typed calendar entry creation.
type CalendarRequest struct {
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	StartsAt  string `json:"starts_at"` // RFC 3339
	EndsAt    string `json:"ends_at,omitempty"`
	Location  string `json:"location,omitempty"`
	Attendees string `json:"attendees,omitempty"` // comma-separated addresses
}

// MailSender delivers outbound mail.
type MailSender interface {
	SendMail(ctx context.Context, req *MailRequest) (messageID string, err error)
}

// ChatSender delivers outbound chat messages.
type ChatSender interface {
	SendChat(ctx context.Context, req *ChatRequest) (messageID string, err error)
}

// CalendarSender creates calendar entries.
type CalendarSender interface {
	CreateEvent(ctx context.Context, req *CalendarRequest) (eventID string, err error)
}
