// Package doctor reports problems in a loaded gitevents configuration that
// config.Load accepts but that are likely mistakes.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/gitevents/internal/config"
	"github.com/mattjoyce/gitevents/internal/lock"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor inspects a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateIntegrity(r)
	d.validateRoutes(r)
	d.validateEventStore(r)
	d.warnExposedListener(r)
	d.warnReferenceHost(r)
	d.warnRegistration(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateIntegrity checks the config directory against its checksum
// manifest.
func (d *Doctor) validateIntegrity(r *Result) {
	dir := d.cfg.ConfigDir()
	if dir == "" {
		return
	}
	res, err := config.VerifyIntegrity(dir)
	if err != nil {
		d.addError(r, "integrity", config.ChecksumFile, err.Error())
		return
	}
	for _, msg := range res.Errors {
		d.addError(r, "integrity", "", msg)
	}
	for _, msg := range res.Warnings {
		d.addWarning(r, "integrity", "", msg)
	}
}

// validateRoutes checks that the served paths do not shadow each other.
func (d *Doctor) validateRoutes(r *Result) {
	routes := map[string]string{"/healthz": "built-in health check"}
	add := func(field, path string) {
		if path == "" {
			return
		}
		if other, ok := routes[path]; ok {
			d.addError(r, "routes", field, fmt.Sprintf("path %q conflicts with %s", path, other))
			return
		}
		routes[path] = field
	}

	add("webhook.path", d.cfg.Webhook.Path)
	if d.cfg.Metrics.Enabled {
		add("metrics.path", d.cfg.Metrics.Path)
	}
	if d.cfg.Feed.Enabled {
		add("feed.path", d.cfg.Feed.Path)
	}
	if p := eventsPath(d.cfg.Events.BaseURL); p != "" {
		if strings.HasPrefix(d.cfg.Webhook.Path, p+"/") {
			d.addError(r, "routes", "events.base_url",
				fmt.Sprintf("event links under %q would shadow webhook.path", p))
		}
	}
}

// validateEventStore checks the database location without opening it.
func (d *Doctor) validateEventStore(r *Result) {
	path := d.cfg.Events.Path
	if lock.PathFor(path) == "" {
		d.addWarning(r, "events", "events.path", "in-memory store; events are lost on restart")
		return
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		d.addError(r, "events", "events.path", fmt.Sprintf("%s is a directory", path))
		return
	}
	if info, err := os.Stat(filepath.Dir(path)); err == nil && !info.IsDir() {
		d.addError(r, "events", "events.path", fmt.Sprintf("parent of %s is not a directory", path))
	}

	if pid, err := lock.Holder(lock.PathFor(path)); err == nil && pid != os.Getpid() {
		d.addWarning(r, "events", "events.path",
			fmt.Sprintf("lock file names pid %d; another serve may be running", pid))
	}
}

// warnExposedListener flags listeners that are reachable beyond loopback.
func (d *Doctor) warnExposedListener(r *Result) {
	host, _, err := net.SplitHostPort(d.cfg.Webhook.Listen)
	if err != nil {
		return
	}
	if isLoopback(host) {
		return
	}
	d.addWarning(r, "network", "webhook.listen",
		"listening beyond loopback; terminate TLS in front of this server")
	if d.cfg.Metrics.Enabled {
		d.addWarning(r, "network", "metrics.path", "metrics are served on the public listener")
	}
	if d.cfg.Feed.Enabled {
		d.addWarning(r, "network", "feed.path", "the activity feed is served on the public listener")
	}
}

// warnReferenceHost flags event links that will not resolve to this server.
func (d *Doctor) warnReferenceHost(r *Result) {
	u, err := url.Parse(d.cfg.Events.BaseURL)
	if err != nil || u.Host == "" {
		return
	}
	if isLoopback(u.Hostname()) {
		d.addWarning(r, "events", "events.base_url",
			"event links point at a loopback address and will not open for other users")
	}
}

// warnRegistration reports missing credentials for the register command.
func (d *Doctor) warnRegistration(r *Result) {
	if err := d.cfg.ValidateRegistration(); err != nil {
		d.addWarning(r, "register", "discord", fmt.Sprintf("register is unavailable: %v", err))
	}
}

func eventsPath(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.TrimRight(u.Path, "/")
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid {
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	} else {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		writeIssue(&b, "ERROR", e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, "WARN ", w)
	}
	return b.String()
}

func writeIssue(b *strings.Builder, label string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
		return
	}
	fmt.Fprintf(b, "  %s [%s] %s\n", label, i.Category, i.Message)
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
