package senders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MailRelaySender implements MailSender against an HTTP mail relay API
// (the OAuth-backed relay that holds per-user mail credentials lives outside
// this core; we speak a small JSON protocol to it).
type MailRelaySender struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewMailRelaySender creates a mail sender for the given relay endpoint.
func NewMailRelaySender(baseURL, authToken string) *MailRelaySender {
	return &MailRelaySender{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type mailRelayResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// SendMail posts one send request to the relay and returns its message id.
func (s *MailRelaySender) SendMail(ctx context.Context, req *MailRequest) (string, error) {
	if strings.TrimSpace(req.To) == "" {
		return "", fmt.Errorf("mail send: recipient is required")
	}
	if s.baseURL == "" {
		return "", fmt.Errorf("mail send: relay URL not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("mail send: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/v1/messages/send", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("mail send: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("mail send: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("mail send: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mail send: relay error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var relayResp mailRelayResponse
	if err := json.Unmarshal(respBody, &relayResp); err != nil {
		return "", fmt.Errorf("mail send: parse response: %w", err)
	}
	if !relayResp.Success {
		return "", fmt.Errorf("mail send: relay rejected: %s", relayResp.Error)
	}
	return relayResp.MessageID, nil
}
