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

// CalendarAPISender implements CalendarSender against an HTTP calendar API.
type CalendarAPISender struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewCalendarAPISender creates a calendar sender for the given endpoint.
func NewCalendarAPISender(baseURL, authToken string) *CalendarAPISender {
	return &CalendarAPISender{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type calendarAPIResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"event_id"`
	Error   string `json:"error,omitempty"`
}

// CreateEvent posts one calendar entry and returns the provider event id.
func (s *CalendarAPISender) CreateEvent(ctx context.Context, req *CalendarRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", fmt.Errorf("calendar create: title is required")
	}
	if strings.TrimSpace(req.StartsAt) == "" {
		return "", fmt.Errorf("calendar create: starts_at is required")
	}
	if _, err := time.Parse(time.RFC3339, req.StartsAt); err != nil {
		return "", fmt.Errorf("calendar create: starts_at must be RFC 3339: %w", err)
	}
	if s.baseURL == "" {
		return "", fmt.Errorf("calendar create: API URL not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("calendar create: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/v1/events", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("calendar create: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calendar create: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("calendar create: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("calendar create: API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp calendarAPIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("calendar create: parse response: %w", err)
	}
	if !apiResp.Success {
		return "", fmt.Errorf("calendar create: rejected: %s", apiResp.Error)
	}
	return apiResp.EventID, nil
}
