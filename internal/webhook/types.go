package webhook

import (
	"context"
	"net/http"

	"github.com/mattjoyce/gitevents/internal/dispatch"
	"github.com/mattjoyce/gitevents/internal/eventstore"
	"github.com/mattjoyce/gitevents/internal/interaction"
)

// RequestVerifier authenticates a raw request. *interaction.Verifier
// implements it.
type RequestVerifier interface {
	Verify(headers http.Header, body []byte) error
}

// Dispatcher maps a decoded interaction to an outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, in interaction.Interaction) dispatch.Outcome
}

// EventReader serves stored events behind reference links.
type EventReader interface {
	Get(ctx context.Context, id string) (*eventstore.Event, error)
}

// Config holds webhook server configuration.
type Config struct {
	Listen string

	// Path receives interaction callbacks (e.g. "/api/interactions").
	Path string

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64

	// EventsPath prefixes GET <EventsPath>/{id}. Empty disables the route.
	EventsPath string

	// MetricsPath serves Prometheus metrics. Empty disables the route.
	MetricsPath string

	// FeedPath serves the activity stream. Empty disables the route.
	FeedPath string
}

// HealthResponse is the JSON body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Default values
const (
	DefaultMaxBodySize = 1048576 // 1 MB
	DefaultPath        = "/api/interactions"
)
