// Package config provides configuration types and loading for briefwire.
package config

import "time"

// Config is the root configuration struct.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Provider  ProviderConfig  `json:"provider"`
	Senders   SendersConfig   `json:"senders"`
	Ingest    IngestConfig    `json:"ingest"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Gateway   GatewayConfig   `json:"gateway"`
}

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
	DBPath  string `json:"dbPath" envconfig:"DB_PATH"`
}

// ModelConfig groups generative-model behaviour.
type ModelConfig struct {
	Name           string  `json:"name" envconfig:"MODEL"`
	MaxTokens      int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature    float64 `json:"temperature" envconfig:"TEMPERATURE"`
	MaxSuggestions int     `json:"maxSuggestions" envconfig:"MAX_SUGGESTIONS"`
}

// ProviderConfig contains settings for the generative-text provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"PROVIDER_API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"PROVIDER_API_BASE"`
}

// SendersConfig contains the outbound collaborator endpoints.
type SendersConfig struct {
	Mail     MailSenderConfig     `json:"mail"`
	Slack    SlackSenderConfig    `json:"slack"`
	Calendar CalendarSenderConfig `json:"calendar"`
	// ExecTimeout bounds one action execution attempt.
	ExecTimeout time.Duration `json:"execTimeout"`
}

// MailSenderConfig configures the HTTP mail relay.
type MailSenderConfig struct {
	Enabled   bool   `json:"enabled" envconfig:"MAIL_ENABLED"`
	RelayURL  string `json:"relayUrl" envconfig:"MAIL_RELAY_URL"`
	AuthToken string `json:"authToken" envconfig:"MAIL_AUTH_TOKEN"`
}

// SlackSenderConfig configures the Slack chat sender.
type SlackSenderConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"SLACK_ENABLED"`
	BotToken string `json:"botToken" envconfig:"SLACK_BOT_TOKEN"`
	APIBase  string `json:"apiBase,omitempty" envconfig:"SLACK_API_BASE"`
}

// CalendarSenderConfig configures the calendar API sender.
type CalendarSenderConfig struct {
	Enabled   bool   `json:"enabled" envconfig:"CALENDAR_ENABLED"`
	APIURL    string `json:"apiUrl" envconfig:"CALENDAR_API_URL"`
	AuthToken string `json:"authToken" envconfig:"CALENDAR_AUTH_TOKEN"`
}

// IngestConfig configures the Kafka event collector.
type IngestConfig struct {
	Enabled       bool   `json:"enabled" envconfig:"INGEST_ENABLED"`
	Brokers       string `json:"brokers" envconfig:"INGEST_BROKERS"` // comma-separated
	Topic         string `json:"topic" envconfig:"INGEST_TOPIC"`
	ConsumerGroup string `json:"consumerGroup" envconfig:"INGEST_CONSUMER_GROUP"`
}

// PipelineConfig bounds one pipeline batch.
type PipelineConfig struct {
	BatchLimit int `json:"batchLimit" envconfig:"PIPELINE_BATCH_LIMIT"`
	Workers    int `json:"workers" envconfig:"PIPELINE_WORKERS"`
}

// SchedulerConfig contains cron loop settings.
type SchedulerConfig struct {
	Enabled      bool          `json:"enabled" envconfig:"SCHEDULER_ENABLED"`
	TickInterval time.Duration `json:"tickInterval"`
	LockPath     string        `json:"lockPath" envconfig:"SCHEDULER_LOCK_PATH"`
}

// GatewayConfig contains HTTP API server settings.
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}
