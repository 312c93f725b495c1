// Package webhook serves the interactions endpoint over HTTP.
//
// Every POST to the configured path runs one pipeline:
//
//	read body (size-limited) -> verify Ed25519 signature -> decode -> dispatch -> render
//
// Verification happens on the raw bytes before any parsing. A failure at any
// stage stops the pipeline and renders a fixed error body, so callers cannot
// tell which internal check failed. Dispatch never fails; a failed event
// creation is reported with 200 and an ephemeral message.
//
// # Security Model
//
// - The body is never logged, only its size and the request id
// - Body size limits are enforced before verification (413 when exceeded)
// - Signature and encoding failures share one 500 response
//
// # Other Routes
//
//	GET /healthz            liveness, no verification
//	GET <events>/{id}       stored event as JSON
//	GET <metrics path>      Prometheus metrics when enabled
//
// # Configuration
//
//	webhook:
//	  listen: "127.0.0.1:8080"
//	  path: /api/interactions
//	  max_body_size: 1MB
package webhook
