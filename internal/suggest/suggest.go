// Package suggest implements the action-suggestion stage: a summary plus the
// original content in, zero or more natural-language next-step prompts out.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Briefwire/Briefwire/internal/provider"
	"github.com/Briefwire/Briefwire/internal/store"
)

// Suggestion is one proposed next step, not yet an executable action.
type Suggestion struct {
	PromptText string
}

// Input carries the original event content and its collector metadata.
type Input struct {
	Source   string
	Content  string
	Metadata map[string]string
}

// Metadata keys that mark content as not replyable. Summarization still
// happens for such content; suggestions are suppressed.
var noReplyKeys = []string{"no_reply", "noreply", "automated", "newsletter"}

// Stage turns summaries into suggestions via the generative provider.
type Stage struct {
	provider    provider.LLMProvider
	model       string
	maxTokens   int
	temperature float64
	maxResults  int
}

// NewStage creates an action-suggestion stage.
func NewStage(p provider.LLMProvider, model string, maxResults int) *Stage {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Stage{provider: p, model: model, maxTokens: 512, temperature: 0.3, maxResults: maxResults}
}

const suggestionPrompt = `You propose concrete follow-up actions for a user based on one summarized event.
Reply with a single JSON object and nothing else:
{"suggestions": ["<one imperative sentence per possible next step>"]}
Only propose steps the user could plausibly take (reply, schedule, forward, remind). An empty list is a valid answer.`

// SuggestActions returns zero or more suggestions for a summary. An empty
// result is success. Content flagged as automated/no-reply short-circuits to
// an empty result without a provider call.
func (s *Stage) SuggestActions(ctx context.Context, sum *store.Summary, original Input, userContext string) ([]Suggestion, error) {
	if NotReplyable(original.Metadata) {
		return nil, nil
	}
	if s.provider == nil {
		return nil, fmt.Errorf("suggest actions: no provider configured")
	}

	user := fmt.Sprintf("summary: %s\ntopic: %s\nimportance: %s\nsource: %s\n\noriginal content:\n%s",
		sum.SummaryText, sum.Topic, sum.Importance, original.Source, original.Content)
	if userContext != "" {
		user += "\n\nuser context:\n" + userContext
	}

	resp, err := s.provider.Chat(ctx, &provider.ChatRequest{
		Model: s.model,
		Messages: []provider.Message{
			{Role: "system", Content: suggestionPrompt},
			{Role: "user", Content: user},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest actions: %w", err)
	}

	return parseSuggestions(resp.Content, s.maxResults)
}

// NotReplyable reports whether collector metadata flags the content as
// automated, no-reply, or newsletter traffic.
func NotReplyable(metadata map[string]string) bool {
	for _, key := range noReplyKeys {
		if isTruthy(metadata[key]) {
			return true
		}
	}
	return false
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

type suggestionList struct {
	Suggestions []string `json:"suggestions"`
}

func parseSuggestions(content string, max int) ([]Suggestion, error) {
	raw := strings.TrimSpace(content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")

	var list suggestionList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}

	var out []Suggestion
	for _, text := range list.Suggestions {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, Suggestion{PromptText: text})
		if len(out) >= max {
			break
		}
	}
	return out, nil
}
