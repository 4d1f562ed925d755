package cmd

import (
	"fmt"

	"github.com/Briefwire/Briefwire/internal/action"
	"github.com/Briefwire/Briefwire/internal/audit"
	"github.com/Briefwire/Briefwire/internal/config"
	"github.com/Briefwire/Briefwire/internal/executor"
	"github.com/Briefwire/Briefwire/internal/pipeline"
	"github.com/Briefwire/Briefwire/internal/provider"
	"github.com/Briefwire/Briefwire/internal/scheduler"
	"github.com/Briefwire/Briefwire/internal/senders"
	"github.com/Briefwire/Briefwire/internal/store"
	"github.com/Briefwire/Briefwire/internal/suggest"
	"github.com/Briefwire/Briefwire/internal/summarize"
)

// app holds the wired runtime components shared by the commands.
type app struct {
	cfg      *config.Config
	store    *store.Store
	ledger   *audit.Ledger
	pipeline *pipeline.Orchestrator
	actions  *action.Manager
	tasks    *scheduler.TaskRunner
}

// buildApp loads config and wires the processing stack.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Paths.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ledger := audit.NewLedger(st)

	var prov provider.LLMProvider
	if cfg.Provider.APIKey != "" {
		prov = provider.NewOpenAIProvider(cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.Model.Name)
	}

	sum := summarize.NewStage(prov, cfg.Model.Name, cfg.Model.MaxTokens)
	sug := suggest.NewStage(prov, cfg.Model.Name, cfg.Model.MaxSuggestions)

	var mail senders.MailSender
	if cfg.Senders.Mail.Enabled {
		mail = senders.NewMailRelaySender(cfg.Senders.Mail.RelayURL, cfg.Senders.Mail.AuthToken)
	}
	var chat senders.ChatSender
	if cfg.Senders.Slack.Enabled {
		chat = senders.NewSlackSender(cfg.Senders.Slack.BotToken, cfg.Senders.Slack.APIBase)
	}
	var calendar senders.CalendarSender
	if cfg.Senders.Calendar.Enabled {
		calendar = senders.NewCalendarAPISender(cfg.Senders.Calendar.APIURL, cfg.Senders.Calendar.AuthToken)
	}

	exec := executor.New(mail, chat, calendar, cfg.Senders.ExecTimeout)
	actions := action.NewManager(st, exec, ledger)
	pipe := pipeline.New(st, sum, sug, ledger, cfg.Pipeline.Workers)
	tasks := scheduler.NewTaskRunner(st, mail, chat, ledger)

	return &app{
		cfg:      cfg,
		store:    st,
		ledger:   ledger,
		pipeline: pipe,
		actions:  actions,
		tasks:    tasks,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}
