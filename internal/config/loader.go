package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads configuration from configPath (a file, or a directory holding
// config.yaml). An empty path means defaults plus environment variables.
//
// A .env file next to the config, or in the working directory when no path
// is given, is loaded first. Variables already set in the environment win.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath == "" {
		if err := loadDotEnv("."); err != nil {
			return nil, err
		}
	} else {
		absPath, err := resolveConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := loadDotEnv(filepath.Dir(absPath)); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", absPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", absPath, err)
		}
		cfg.SourcePath = absPath
	}

	interpolateConfig(cfg)
	applyConfigDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DiscoverConfig finds a config by checking standard locations.
// Priority order: $GITEVENTS_CONFIG_DIR, ~/.config/gitevents, /etc/gitevents, ./config.yaml.
// It returns "" when nothing is found; Load then uses defaults and the environment.
func DiscoverConfig() string {
	if dir := os.Getenv("GITEVENTS_CONFIG_DIR"); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigDir := filepath.Join(homeDir, ".config", "gitevents")
		if _, err := os.Stat(filepath.Join(userConfigDir, "config.yaml")); err == nil {
			return userConfigDir
		}
	}

	systemConfigDir := "/etc/gitevents"
	if _, err := os.Stat(filepath.Join(systemConfigDir, "config.yaml")); err == nil {
		return systemConfigDir
	}

	if _, err := os.Stat("./config.yaml"); err == nil {
		return "./config.yaml"
	}
	return ""
}

func resolveConfigFile(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}
	return absPath, nil
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func interpolateConfig(cfg *Config) {
	for _, field := range []*string{
		&cfg.Webhook.Listen,
		&cfg.Discord.PublicKey,
		&cfg.Discord.ApplicationID,
		&cfg.Discord.BotToken,
		&cfg.Discord.APIBaseURL,
		&cfg.Events.Path,
		&cfg.Events.BaseURL,
	} {
		*field = interpolateEnv(*field)
	}
}

// interpolateEnv replaces ${VAR} with the environment value. Unset variables
// are left in place and reported by validation when they matter.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

func applyConfigDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Service.Name == "" {
		cfg.Service.Name = def.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = def.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = def.Service.LogFormat
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = def.Webhook.Path
	}
	if cfg.Webhook.MaxBodySize == "" {
		cfg.Webhook.MaxBodySize = def.Webhook.MaxBodySize
	}
	if cfg.Discord.APIBaseURL == "" {
		cfg.Discord.APIBaseURL = def.Discord.APIBaseURL
	}
	if cfg.Discord.RequestTimeout <= 0 {
		cfg.Discord.RequestTimeout = def.Discord.RequestTimeout
	}
	if cfg.Events.Timezone == "" {
		cfg.Events.Timezone = def.Events.Timezone
	}
	if cfg.Events.WriteTimeout <= 0 {
		cfg.Events.WriteTimeout = def.Events.WriteTimeout
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = def.Metrics.Path
	}
	if cfg.Feed.Path == "" {
		cfg.Feed.Path = def.Feed.Path
	}
	if cfg.Feed.Capacity <= 0 {
		cfg.Feed.Capacity = def.Feed.Capacity
	}
	cfg.Events.BaseURL = strings.TrimRight(cfg.Events.BaseURL, "/")
	cfg.Discord.APIBaseURL = strings.TrimRight(cfg.Discord.APIBaseURL, "/")
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.Webhook.Listen == "" {
		return fmt.Errorf("webhook.listen is required")
	}
	if !strings.HasPrefix(cfg.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path must start with / (got %q)", cfg.Webhook.Path)
	}
	if _, err := ParseSize(cfg.Webhook.MaxBodySize); err != nil {
		return fmt.Errorf("webhook.max_body_size %q: %w", cfg.Webhook.MaxBodySize, err)
	}

	if err := checkResolved("discord.public_key", cfg.Discord.PublicKey); err != nil {
		return err
	}
	if err := validatePublicKey(cfg.Discord.PublicKey); err != nil {
		return err
	}
	if _, err := url.ParseRequestURI(cfg.Discord.APIBaseURL); err != nil {
		return fmt.Errorf("discord.api_base_url: %w", err)
	}

	if cfg.Events.Path == "" {
		return fmt.Errorf("events.path is required")
	}
	if err := checkResolved("events.path", cfg.Events.Path); err != nil {
		return err
	}
	if _, err := url.ParseRequestURI(cfg.Events.BaseURL); err != nil {
		return fmt.Errorf("events.base_url: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Events.Timezone); err != nil {
		return fmt.Errorf("events.timezone: %w", err)
	}

	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with / (got %q)", cfg.Metrics.Path)
		}
		if cfg.Metrics.Path == cfg.Webhook.Path {
			return fmt.Errorf("metrics.path and webhook.path must differ")
		}
	}
	if cfg.Feed.Enabled {
		if !strings.HasPrefix(cfg.Feed.Path, "/") {
			return fmt.Errorf("feed.path must start with / (got %q)", cfg.Feed.Path)
		}
		if cfg.Feed.Path == cfg.Webhook.Path {
			return fmt.Errorf("feed.path and webhook.path must differ")
		}
	}
	return nil
}

// ValidateRegistration checks the settings needed to register the command.
func (c *Config) ValidateRegistration() error {
	if err := checkResolved("discord.application_id", c.Discord.ApplicationID); err != nil {
		return err
	}
	if c.Discord.ApplicationID == "" {
		return fmt.Errorf("discord.application_id is required")
	}
	if err := checkResolved("discord.bot_token", c.Discord.BotToken); err != nil {
		return err
	}
	if c.Discord.BotToken == "" {
		return fmt.Errorf("discord.bot_token is required")
	}
	return nil
}

func checkResolved(field, value string) error {
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}

func validatePublicKey(key string) error {
	if key == "" {
		return fmt.Errorf("discord.public_key is required")
	}
	raw, err := hex.DecodeString(strings.TrimSpace(key))
	if err != nil {
		return fmt.Errorf("discord.public_key must be hex: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("discord.public_key must be 32 bytes (got %d)", len(raw))
	}
	return nil
}

// ParseSize parses size strings like "1MB", "512KB" or "1048576" to bytes.
func ParseSize(size string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}
	return result, nil
}

// MaxBodyBytes returns the parsed webhook body limit. Load has validated it.
func (c *Config) MaxBodyBytes() int64 {
	n, err := ParseSize(c.Webhook.MaxBodySize)
	if err != nil {
		return 1024 * 1024
	}
	return n
}
