// Package gateway exposes the briefwire HTTP API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Briefwire/Briefwire/internal/action"
	"github.com/Briefwire/Briefwire/internal/audit"
	"github.com/Briefwire/Briefwire/internal/pipeline"
	"github.com/Briefwire/Briefwire/internal/scheduler"
	"github.com/Briefwire/Briefwire/internal/store"
)

// Options wires the server's collaborators.
type Options struct {
	Store     *store.Store
	Pipeline  *pipeline.Orchestrator
	Actions   *action.Manager
	Tasks     *scheduler.TaskRunner
	Ledger    *audit.Ledger
	AuthToken string
	Version   string
}

// Server serves the HTTP API.
type Server struct {
	opts      Options
	startTime time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	return &Server{opts: opts, startTime: time.Now()}
}

// ListenAndServe blocks serving the API on addr until the context is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("gateway: API server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler builds the API route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if s.opts.AuthToken == "" {
			return true
		}
		token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if token != s.opts.AuthToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return false
		}
		return true
	}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	writeErr := func(w http.ResponseWriter, status int, msg string) {
		writeJSON(w, status, map[string]string{"error": msg})
	}

	// API: Status (unauthenticated health check)
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		body := map[string]any{
			"version":        s.opts.Version,
			"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		}
		if raw, pending, err := s.opts.Store.QueueDepths(); err == nil {
			body["queued_events"] = raw
			body["pending_actions"] = pending
		}
		writeJSON(w, http.StatusOK, body)
	})

	// API: Run a pipeline batch (POST)
	mux.HandleFunc("/api/v1/pipeline/run", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Limit int `json:"limit"`
		}
		if r.Body != nil {
			// Empty body means defaults.
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		result, err := s.opts.Pipeline.RunBatch(r.Context(), body.Limit)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	// API: Confirm or reject a pending action (POST)
	mux.HandleFunc("/api/v1/actions/confirm", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			ActionID  string `json:"action_id"`
			UserID    string `json:"user_id"`
			Confirmed *bool  `json:"confirmed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid body")
			return
		}
		if strings.TrimSpace(body.ActionID) == "" || strings.TrimSpace(body.UserID) == "" {
			writeErr(w, http.StatusBadRequest, "action_id and user_id required")
			return
		}
		if body.Confirmed == nil {
			writeErr(w, http.StatusBadRequest, "confirmed required")
			return
		}
		result, err := s.opts.Actions.Decide(r.Context(), body.ActionID, body.UserID, *body.Confirmed)
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeErr(w, http.StatusNotFound, "action not found")
			return
		case errors.Is(err, action.ErrPrecondition):
			writeErr(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	// API: List actions (GET)
	mux.HandleFunc("/api/v1/actions", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		userID := r.URL.Query().Get("user_id")
		status := r.URL.Query().Get("status")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 100
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		actions, err := s.opts.Store.ListActions(userID, status, limit, offset)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		if actions == nil {
			actions = []store.Action{}
		}
		writeJSON(w, http.StatusOK, actions)
	})

	// API: Run due scheduled tasks (POST)
	mux.HandleFunc("/api/v1/tasks/run", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		result, err := s.opts.Tasks.RunDueTasks(r.Context(), time.Now().UTC())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	// API: Create a scheduled task (POST)
	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			UserID       string          `json:"user_id"`
			TaskType     string          `json:"task_type"`
			Title        string          `json:"title"`
			Description  string          `json:"description"`
			ScheduledFor time.Time       `json:"scheduled_for"`
			Metadata     json.RawMessage `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid body")
			return
		}
		if strings.TrimSpace(body.UserID) == "" || strings.TrimSpace(body.Title) == "" {
			writeErr(w, http.StatusBadRequest, "user_id and title required")
			return
		}
		if body.ScheduledFor.IsZero() {
			writeErr(w, http.StatusBadRequest, "scheduled_for required")
			return
		}
		taskType := body.TaskType
		if taskType == "" {
			taskType = store.TaskTypeReminder
		}
		task, err := s.opts.Store.CreateScheduledTask(&store.ScheduledTask{
			UserID:       body.UserID,
			TaskType:     taskType,
			Title:        body.Title,
			Description:  body.Description,
			ScheduledFor: body.ScheduledFor.UTC(),
			Metadata:     string(body.Metadata),
		})
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, task)
	})

	// API: Audit trail (GET)
	mux.HandleFunc("/api/v1/audit", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 100
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		filter := store.AuditFilter{
			UserID:     r.URL.Query().Get("user_id"),
			RawEventID: r.URL.Query().Get("raw_event_id"),
			Stage:      r.URL.Query().Get("stage"),
			Status:     r.URL.Query().Get("status"),
			Limit:      limit,
			Offset:     offset,
		}
		entries, err := s.opts.Ledger.Query(filter)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []store.AuditEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	// API: Summaries feed (GET)
	mux.HandleFunc("/api/v1/summaries", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		userID := r.URL.Query().Get("user_id")
		if strings.TrimSpace(userID) == "" {
			writeErr(w, http.StatusBadRequest, "user_id required")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		summaries, err := s.opts.Store.ListSummaries(userID, limit, offset)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		if summaries == nil {
			summaries = []store.Summary{}
		}
		writeJSON(w, http.StatusOK, summaries)
	})

	// API: Ingest a raw event directly (POST)
	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			UserID   string            `json:"user_id"`
			Source   string            `json:"source"`
			Text     string            `json:"text"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid body")
			return
		}
		if strings.TrimSpace(body.UserID) == "" || strings.TrimSpace(body.Source) == "" {
			writeErr(w, http.StatusBadRequest, "user_id and source required")
			return
		}
		content := body.Text
		if len(body.Metadata) > 0 {
			packed, err := json.Marshal(map[string]any{
				"text":     body.Text,
				"metadata": body.Metadata,
			})
			if err != nil {
				writeErr(w, http.StatusInternalServerError, err.Error())
				return
			}
			content = string(packed)
		}
		ev, err := s.opts.Store.InsertRawEvent(&store.RawEvent{
			UserID:  body.UserID,
			Source:  strings.ToLower(strings.TrimSpace(body.Source)),
			Content: content,
		})
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"event_id": ev.ID, "status": ev.Status})
	})

	return mux
}

// Addr formats a host/port pair for ListenAndServe.
func Addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
