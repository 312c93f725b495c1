// Package register installs the new_event slash command with the platform's
// REST API.
package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseBodyBytes  = 1 << 20
)

// CommandTypeChatInput is a slash command.
const CommandTypeChatInput = 1

// ErrRegistrationFailed is the cause of every non-2xx response.
var ErrRegistrationFailed = errors.New("command registration failed")

// Command is an application command definition.
type Command struct {
	Name        string `json:"name"`
	Type        int    `json:"type"`
	Description string `json:"description"`
}

// NewEventCommand opens the new event form.
var NewEventCommand = Command{
	Name:        "new_event",
	Type:        CommandTypeChatInput,
	Description: "Create a new event on GitEvents",
}

// Registered is the platform's view of a registered command.
type Registered struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	Name          string `json:"name"`
	Version       string `json:"version"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("register command: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the credentials and endpoint for registration.
type Config struct {
	APIBaseURL     string
	ApplicationID  string
	BotToken       string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
}

// Client registers application commands.
type Client struct {
	config     Config
	httpClient HTTPDoer
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.ApplicationID = strings.TrimSpace(cfg.ApplicationID)
	cfg.BotToken = strings.TrimSpace(cfg.BotToken)
	return &Client{config: cfg, httpClient: httpClient}
}

// Endpoint is the URL commands are posted to.
func (c *Client) Endpoint() string {
	return c.config.APIBaseURL + "/applications/" + c.config.ApplicationID + "/commands"
}

// Register posts cmd. Registering an existing name overwrites it.
func (c *Client) Register(ctx context.Context, cmd Command) (*Registered, error) {
	if c.config.ApplicationID == "" || c.config.BotToken == "" {
		return nil, fmt.Errorf("application id and bot token are required")
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.config.BotToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			Cause:      ErrRegistrationFailed,
		}
	}

	var out Registered
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return &out, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "empty response"
}
