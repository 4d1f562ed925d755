// Package collector ingests raw events from external sources and
// persists them for the processing pipeline.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Briefwire/Briefwire/internal/store"
)

// Source is a stream of inbound event envelopes.
type Source interface {
	Start(ctx context.Context) error
	Messages() <-chan SourceMessage
	Close() error
}

// SourceMessage is one raw message from a source.
type SourceMessage struct {
	Key   []byte
	Value []byte
}

// eventEnvelope is the wire format producers publish to the ingest topic.
type eventEnvelope struct {
	UserID   string            `json:"user_id"`
	Source   string            `json:"source"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

var knownSources = map[string]bool{
	"mail":     true,
	"calendar": true,
	"chat":     true,
	"docs":     true,
}

// Collector drains a Source and writes raw events into the store.
type Collector struct {
	source Source
	store  *store.Store
}

// New creates a Collector over the given source.
func New(src Source, s *store.Store) *Collector {
	return &Collector{source: src, store: s}
}

// Run consumes messages until the context is cancelled or the source
// channel closes. Malformed messages are logged and skipped.
func (c *Collector) Run(ctx context.Context) error {
	if err := c.source.Start(ctx); err != nil {
		return fmt.Errorf("start source: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-c.source.Messages():
			if !ok {
				return nil
			}
			if err := c.ingest(msg); err != nil {
				slog.Warn("collector: dropping message", "error", err)
			}
		}
	}
}

func (c *Collector) ingest(msg SourceMessage) error {
	var env eventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.UserID == "" {
		return fmt.Errorf("envelope missing user_id")
	}
	src := strings.ToLower(strings.TrimSpace(env.Source))
	if !knownSources[src] {
		return fmt.Errorf("unknown source %q", env.Source)
	}

	content := env.Text
	if len(env.Metadata) > 0 {
		packed, err := json.Marshal(struct {
			Text     string            `json:"text"`
			Metadata map[string]string `json:"metadata"`
		}{Text: env.Text, Metadata: env.Metadata})
		if err != nil {
			return fmt.Errorf("pack content: %w", err)
		}
		content = string(packed)
	}

	ev, err := c.store.InsertRawEvent(&store.RawEvent{
		UserID:  env.UserID,
		Source:  src,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("persist raw event: %w", err)
	}
	slog.Debug("collector: ingested event", "event_id", ev.ID, "source", src)
	return nil
}
