// Package summarize implements the summarization stage: one raw event in, one
// structured summary out, with a deterministic fallback when the generative
// collaborator is unavailable.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Briefwire/Briefwire/internal/provider"
)

// MaxSummaryChars is the hard cap on summary text length.
const MaxSummaryChars = 200

// FallbackModel is the model identifier recorded on degraded summaries so
// downstream consumers can detect reduced quality.
const FallbackModel = "fallback"

// Input is the content handed to the stage.
type Input struct {
	Source   string
	Content  string
	Metadata map[string]string
}

// Result holds the extracted summary fields.
type Result struct {
	SummaryText  string
	Topic        string
	Entities     []string
	Importance   string
	ModelUsed    string
	ModelVersion string
}

// Stage delegates to a generative-text provider with a fixed extraction contract.
type Stage struct {
	provider    provider.LLMProvider
	model       string
	maxTokens   int
	temperature float64
}

// NewStage creates a summarization stage. Provider may be nil, in which case
// every call takes the fallback path.
func NewStage(p provider.LLMProvider, model string, maxTokens int) *Stage {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Stage{provider: p, model: model, maxTokens: maxTokens, temperature: 0.2}
}

const extractionPrompt = `You condense one incoming event into a brief for a busy user.
Reply with a single JSON object and nothing else:
{"summary": "<at most 200 characters>", "topic": "<short topic>", "entities": ["<named people, places, projects, in order of mention>"], "importance": "low|medium|high"}
Importance rules: high = urgent, time-boxed, or from an important person; medium = routine scheduled work; low = everything else. When unsure, use low.`

// Summarize produces summary fields for one event. It never returns an error
// for provider outages: those degrade to the deterministic fallback.
func (s *Stage) Summarize(ctx context.Context, in Input) *Result {
	if s.provider == nil {
		return s.fallback(in, "no provider configured")
	}

	resp, err := s.provider.Chat(ctx, &provider.ChatRequest{
		Model: s.model,
		Messages: []provider.Message{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: fmt.Sprintf("source: %s\n\n%s", in.Source, in.Content)},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		JSONOnly:    true,
	})
	if err != nil {
		return s.fallback(in, err.Error())
	}

	res, err := parseExtraction(resp.Content)
	if err != nil {
		return s.fallback(in, err.Error())
	}
	res.ModelUsed = s.modelName()
	res.ModelVersion = resp.Model
	return res
}

func (s *Stage) modelName() string {
	if s.model != "" {
		return s.model
	}
	if s.provider != nil {
		return s.provider.DefaultModel()
	}
	return ""
}

// fallback builds a deterministic degraded summary: truncated raw content
// prefixed with the source name, lowest importance, distinguishable model id.
func (s *Stage) fallback(in Input, cause string) *Result {
	slog.Warn("Summarization falling back", "source", in.Source, "cause", cause)
	text := Truncate(fmt.Sprintf("[%s] %s", in.Source, collapseWhitespace(in.Content)), MaxSummaryChars)
	return &Result{
		SummaryText: text,
		Topic:       "update",
		Entities:    nil,
		Importance:  "low",
		ModelUsed:   FallbackModel,
	}
}

// extraction mirrors the JSON contract with the provider.
type extraction struct {
	Summary    string   `json:"summary"`
	Topic      string   `json:"topic"`
	Entities   []string `json:"entities"`
	Importance string   `json:"importance"`
}

func parseExtraction(content string) (*Result, error) {
	raw := stripCodeFence(content)
	var ex extraction
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", err)
	}
	if strings.TrimSpace(ex.Summary) == "" {
		return nil, fmt.Errorf("parse extraction: empty summary")
	}
	return &Result{
		SummaryText: Truncate(strings.TrimSpace(ex.Summary), MaxSummaryChars),
		Topic:       strings.TrimSpace(ex.Topic),
		Entities:    ex.Entities,
		Importance:  normalizeImportance(ex.Importance),
	}, nil
}

func normalizeImportance(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high":
		return "high"
	case "medium":
		return "medium"
	default:
		// Default on ambiguity.
		return "low"
	}
}

// Truncate cuts s to at most max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripCodeFence removes a surrounding markdown code fence if present; models
// sometimes wrap JSON despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
