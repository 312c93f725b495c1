package webhook

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mattjoyce/gitevents/internal/config"
)

// FromGlobalConfig converts the loaded configuration to webhook.Config.
// The events route is mounted at the path of events.base_url so reference
// links resolve against this server.
func FromGlobalConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	maxBody, err := config.ParseSize(c.Webhook.MaxBodySize)
	if err != nil {
		return Config{}, fmt.Errorf("webhook.max_body_size: %w", err)
	}

	cfg := Config{
		Listen:      c.Webhook.Listen,
		Path:        c.Webhook.Path,
		MaxBodySize: maxBody,
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	if c.Events.BaseURL != "" {
		u, err := url.Parse(c.Events.BaseURL)
		if err != nil {
			return Config{}, fmt.Errorf("events.base_url: %w", err)
		}
		cfg.EventsPath = strings.TrimRight(u.Path, "/")
		if cfg.EventsPath == "" {
			cfg.EventsPath = "/events"
		}
	}

	if c.Metrics.Enabled {
		cfg.MetricsPath = c.Metrics.Path
	}
	if c.Feed.Enabled {
		cfg.FeedPath = c.Feed.Path
	}
	return cfg, nil
}
