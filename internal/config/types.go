package config

import "time"

// Config represents the complete gitevents configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Webhook WebhookConfig `yaml:"webhook"`
	Discord DiscordConfig `yaml:"discord"`
	Events  EventsConfig  `yaml:"events"`
	Metrics MetricsConfig `yaml:"metrics"`
	Feed    FeedConfig    `yaml:"feed"`

	// SourcePath is the config file Load read, or "" for defaults.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// WebhookConfig defines the interactions HTTP listener.
type WebhookConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
	// MaxBodySize accepts "1MB", "512KB" or a byte count.
	MaxBodySize string `yaml:"max_body_size"`
}

// DiscordConfig holds platform credentials.
type DiscordConfig struct {
	// PublicKey is the application's hex Ed25519 key used to verify requests.
	PublicKey string `yaml:"public_key"`

	// ApplicationID and BotToken are only needed to register the command.
	ApplicationID string `yaml:"application_id"`
	BotToken      string `yaml:"bot_token"`

	APIBaseURL     string        `yaml:"api_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// EventsConfig defines the event store used for form submissions.
type EventsConfig struct {
	Path         string        `yaml:"path"`
	BaseURL      string        `yaml:"base_url"`
	Timezone     string        `yaml:"timezone"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// FeedConfig defines the server-sent activity stream.
type FeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// Capacity is how many recent entries reconnecting clients can replay.
	Capacity int `yaml:"capacity"`
}

// Defaults returns a Config with sensible defaults. Credentials default to
// environment placeholders so a config file is optional.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "gitevents",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Webhook: WebhookConfig{
			Listen:      "127.0.0.1:8080",
			Path:        "/api/interactions",
			MaxBodySize: "1MB",
		},
		Discord: DiscordConfig{
			PublicKey:      "${DISCORD_PUBLIC_KEY}",
			ApplicationID:  "${DISCORD_APPLICATION_ID}",
			BotToken:       "${DISCORD_BOT_TOKEN}",
			APIBaseURL:     "https://discord.com/api/v10",
			RequestTimeout: 10 * time.Second,
		},
		Events: EventsConfig{
			Path:         "./data/events.db",
			BaseURL:      "http://127.0.0.1:8080/events",
			Timezone:     "UTC",
			WriteTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Feed: FeedConfig{
			Enabled:  false,
			Path:     "/feed",
			Capacity: 100,
		},
	}
}
