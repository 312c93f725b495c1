package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicKey = "e1d5a1c6f0b2e8a4c9d3f7b6a5e4d3c2b1a0f9e8d7c6b5a4e3d2c1b0a9f8e7d6"

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
service:
  log_level: debug
  log_format: text
webhook:
  listen: 0.0.0.0:9000
  path: /interactions
  max_body_size: 64KB
discord:
  public_key: `+testPublicKey+`
  application_id: "1234"
  bot_token: secret
events:
  path: /tmp/events.db
  base_url: https://events.example.com/e/
  timezone: Europe/London
  write_timeout: 5s
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gitevents", cfg.Service.Name)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, "text", cfg.Service.LogFormat)
	assert.Equal(t, "0.0.0.0:9000", cfg.Webhook.Listen)
	assert.Equal(t, "/interactions", cfg.Webhook.Path)
	assert.Equal(t, int64(64*1024), cfg.MaxBodyBytes())
	assert.Equal(t, testPublicKey, cfg.Discord.PublicKey)
	assert.Equal(t, "https://discord.com/api/v10", cfg.Discord.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Discord.RequestTimeout)
	assert.Equal(t, "https://events.example.com/e", cfg.Events.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Events.WriteTimeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Feed.Enabled)
	assert.Equal(t, "/feed", cfg.Feed.Path)
	assert.Equal(t, 100, cfg.Feed.Capacity)
	assert.NoError(t, cfg.ValidateRegistration())

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.SourcePath)
	assert.Equal(t, filepath.Dir(abs), cfg.ConfigDir())
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "discord:\n  public_key: "+testPublicKey+"\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/api/interactions", cfg.Webhook.Path)
}

func TestLoad_EnvInterpolation(t *testing.T) {
	t.Setenv("TEST_GITEVENTS_KEY", testPublicKey)
	t.Setenv("TEST_GITEVENTS_TOKEN", "bot-token")

	dir := t.TempDir()
	path := writeConfig(t, dir, `
discord:
  public_key: ${TEST_GITEVENTS_KEY}
  application_id: "42"
  bot_token: ${TEST_GITEVENTS_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testPublicKey, cfg.Discord.PublicKey)
	assert.Equal(t, "bot-token", cfg.Discord.BotToken)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "discord:\n  public_key: ${TEST_DOTENV_KEY}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_DOTENV_KEY="+testPublicKey+"\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TEST_DOTENV_KEY") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testPublicKey, cfg.Discord.PublicKey)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	other := strings.Repeat("ab", 32)
	t.Setenv("TEST_DOTENV_KEY2", other)

	dir := t.TempDir()
	path := writeConfig(t, dir, "discord:\n  public_key: ${TEST_DOTENV_KEY2}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_DOTENV_KEY2="+testPublicKey+"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, other, cfg.Discord.PublicKey)
}

func TestLoad_DefaultsFromEnvironment(t *testing.T) {
	t.Setenv("DISCORD_PUBLIC_KEY", testPublicKey)
	t.Setenv("DISCORD_APPLICATION_ID", "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, testPublicKey, cfg.Discord.PublicKey)

	err = cfg.ValidateRegistration()
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing public key variable",
			content: "discord:\n  public_key: ${TEST_GITEVENTS_UNSET_VAR}\n",
			wantErr: "environment variable ${TEST_GITEVENTS_UNSET_VAR} is not set",
		},
		{
			name:    "public key not hex",
			content: "discord:\n  public_key: nothex\n",
			wantErr: "discord.public_key must be hex",
		},
		{
			name:    "public key wrong length",
			content: "discord:\n  public_key: abcd\n",
			wantErr: "discord.public_key must be 32 bytes",
		},
		{
			name:    "empty public key",
			content: "discord:\n  public_key: \"\"\n",
			wantErr: "discord.public_key is required",
		},
		{
			name:    "bad log level",
			content: "service:\n  log_level: loud\ndiscord:\n  public_key: " + testPublicKey + "\n",
			wantErr: "service.log_level",
		},
		{
			name:    "bad body size",
			content: "webhook:\n  max_body_size: lots\ndiscord:\n  public_key: " + testPublicKey + "\n",
			wantErr: "webhook.max_body_size",
		},
		{
			name:    "relative webhook path",
			content: "webhook:\n  path: interactions\ndiscord:\n  public_key: " + testPublicKey + "\n",
			wantErr: "webhook.path must start with /",
		},
		{
			name:    "bad timezone",
			content: "events:\n  timezone: Mars/Olympus\ndiscord:\n  public_key: " + testPublicKey + "\n",
			wantErr: "events.timezone",
		},
		{
			name:    "metrics path collides",
			content: "webhook:\n  path: /x\nmetrics:\n  enabled: true\n  path: /x\ndiscord:\n  public_key: " + testPublicKey + "\n",
			wantErr: "must differ",
		},
		{
			name:    "feed path collides",
			content: "feed:\n  enabled: true\n  path: /api/interactions\ndiscord:\n  public_key: " + testPublicKey + "\n",
			wantErr: "feed.path and webhook.path must differ",
		},
		{
			name:    "relative feed path",
			content: "feed:\n  enabled: true\n  path: feed\ndiscord:\n  public_key: " + testPublicKey + "\n",
			wantErr: "feed.path must start with /",
		},
		{
			name:    "invalid yaml",
			content: "discord: [",
			wantErr: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")

	_, err = Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.yaml not found")
}

func TestValidateRegistration(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.ApplicationID = "1"
	cfg.Discord.BotToken = "${DISCORD_BOT_TOKEN}"
	err := cfg.ValidateRegistration()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord.bot_token")

	cfg.Discord.BotToken = "token"
	assert.NoError(t, cfg.ValidateRegistration())
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1MB", want: 1024 * 1024},
		{in: "512kb", want: 512 * 1024},
		{in: "2GB", want: 2 * 1024 * 1024 * 1024},
		{in: "2048", want: 2048},
		{in: " 10 KB ", want: 10 * 1024},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-1MB", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "9223372036854775807GB", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
