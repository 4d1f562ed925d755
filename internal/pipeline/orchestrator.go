// Package pipeline drives raw events through summarization and action
// suggestion. A batch claims each event with a conditional status update
// before doing any stage work, so overlapping runs never process the same
// event twice.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Briefwire/Briefwire/internal/audit"
	"github.com/Briefwire/Briefwire/internal/store"
	"github.com/Briefwire/Briefwire/internal/suggest"
	"github.com/Briefwire/Briefwire/internal/summarize"
)

// DefaultBatchLimit bounds one pipeline run when the trigger gives no limit.
const DefaultBatchLimit = 20

// EventOutcome reports what happened to one claimed event.
type EventOutcome struct {
	EventID     string `json:"event_id"`
	Status      string `json:"status"` // processed or failed
	Summarized  bool   `json:"summarized"`
	Suggestions int    `json:"suggestions"`
	Error       string `json:"error,omitempty"`
}

// BatchResult reports one pipeline run.
type BatchResult struct {
	Processed int            `json:"processed"`
	Outcomes  []EventOutcome `json:"outcomes"`
}

// Orchestrator owns one batch run of the event pipeline.
type Orchestrator struct {
	store      *store.Store
	summarizer *summarize.Stage
	suggester  *suggest.Stage
	ledger     *audit.Ledger
	workers    int
}

// New creates a pipeline orchestrator. Workers bounds in-batch concurrency to
// respect collaborator rate limits.
func New(s *store.Store, sum *summarize.Stage, sug *suggest.Stage, ledger *audit.Ledger, workers int) *Orchestrator {
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{store: s, summarizer: sum, suggester: sug, ledger: ledger, workers: workers}
}

// RunBatch claims up to limit raw events (oldest first) and processes each
// through the stages. Per-event failures are isolated: they are recorded in
// the outcome and the audit log, and never abort the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	events, err := o.store.ListUnprocessedEvents(limit)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if len(events) == 0 {
		return &BatchResult{}, nil
	}

	jobs := make(chan store.RawEvent, len(events))
	for _, evt := range events {
		jobs <- evt
	}
	close(jobs)

	var (
		mu       sync.Mutex
		outcomes []EventOutcome
		wg       sync.WaitGroup
	)
	workers := o.workers
	if workers > len(events) {
		workers = len(events)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for evt := range jobs {
				claimed, err := o.store.ClaimRawEvent(evt.ID)
				if err != nil {
					slog.Error("Pipeline claim failed", "event", evt.ID, "error", err)
					continue
				}
				if !claimed {
					// Another run owns this event; it will report the outcome.
					continue
				}
				outcome := o.processEvent(ctx, &evt)
				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return &BatchResult{Processed: len(outcomes), Outcomes: outcomes}, nil
}

// envelope is the collector's raw content shape. Content that is not valid
// JSON is treated as plain text with no metadata.
type envelope struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

func decodeContent(content string) envelope {
	var env envelope
	if err := json.Unmarshal([]byte(content), &env); err != nil || env.Text == "" {
		return envelope{Text: content}
	}
	return env
}

// processEvent runs both stages for one claimed event and finalizes its status.
func (o *Orchestrator) processEvent(ctx context.Context, evt *store.RawEvent) EventOutcome {
	env := decodeContent(evt.Content)

	res := o.summarizer.Summarize(ctx, summarize.Input{
		Source:   evt.Source,
		Content:  env.Text,
		Metadata: env.Metadata,
	})

	sum, err := o.store.InsertSummary(&store.Summary{
		RawEventID:   evt.ID,
		UserID:       evt.UserID,
		SummaryText:  res.SummaryText,
		Topic:        res.Topic,
		Entities:     res.Entities,
		Importance:   res.Importance,
		ModelUsed:    res.ModelUsed,
		ModelVersion: res.ModelVersion,
	})
	if err != nil {
		o.ledger.Failure(evt.ID, evt.UserID, store.StageSummarized, err.Error())
		o.finish(evt, store.EventStatusFailed, err.Error())
		return EventOutcome{EventID: evt.ID, Status: store.EventStatusFailed, Error: err.Error()}
	}
	o.ledger.Success(evt.ID, evt.UserID, store.StageSummarized,
		fmt.Sprintf("summarized via %s (importance %s)", sum.ModelUsed, sum.Importance))

	// Suggestion failure is non-fatal: a usable summary already exists.
	count, sugErr := o.suggestFor(ctx, evt, sum, env)
	if sugErr != nil {
		o.ledger.Failure(evt.ID, evt.UserID, store.StageActionSuggested, sugErr.Error())
	} else {
		o.ledger.Success(evt.ID, evt.UserID, store.StageActionSuggested,
			fmt.Sprintf("%d suggestion(s)", count))
	}

	o.finish(evt, store.EventStatusProcessed, "")
	o.ledger.Success(evt.ID, evt.UserID, store.StageCompleted,
		fmt.Sprintf("processed with %d suggestion(s)", count))

	return EventOutcome{
		EventID:     evt.ID,
		Status:      store.EventStatusProcessed,
		Summarized:  true,
		Suggestions: count,
	}
}

func (o *Orchestrator) suggestFor(ctx context.Context, evt *store.RawEvent, sum *store.Summary, env envelope) (int, error) {
	suggestions, err := o.suggester.SuggestActions(ctx, sum, suggest.Input{
		Source:   evt.Source,
		Content:  env.Text,
		Metadata: env.Metadata,
	}, "")
	if err != nil {
		return 0, err
	}
	count := 0
	for _, sg := range suggestions {
		if _, err := o.store.InsertSuggestion(&store.ActionSuggestion{
			SummaryID:  sum.ID,
			PromptText: sg.PromptText,
		}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (o *Orchestrator) finish(evt *store.RawEvent, status, errText string) {
	if err := o.store.FinishRawEvent(evt.ID, status, errText); err != nil {
		slog.Error("Pipeline status write failed", "event", evt.ID, "status", status, "error", err)
	}
}
