package senders

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// SlackSender implements ChatSender against the Slack Web API.
type SlackSender struct {
	api *slack.Client
}

// NewSlackSender creates a chat sender for the given bot token. An optional
// apiBase override supports test servers and enterprise proxies.
func NewSlackSender(token, apiBase string) *SlackSender {
	opts := []slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	if apiBase != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimSuffix(apiBase, "/")+"/"))
	}
	return &SlackSender{api: slack.New(token, opts...)}
}

// SendChat posts one message and returns the Slack message timestamp as the
// provider message id.
func (s *SlackSender) SendChat(ctx context.Context, req *ChatRequest) (string, error) {
	if strings.TrimSpace(req.ChatID) == "" {
		return "", fmt.Errorf("slack send: chat_id is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("slack send: text is required")
	}

	opts := []slack.MsgOption{slack.MsgOptionText(req.Text, false)}
	if req.ThreadID != "" {
		opts = append(opts, slack.MsgOptionTS(req.ThreadID))
	}

	_, ts, err := s.api.PostMessageContext(ctx, req.ChatID, opts...)
	if err != nil {
		return "", fmt.Errorf("slack send: %w", err)
	}
	return ts, nil
}
