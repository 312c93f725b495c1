// Package eventstore persists events created from form submissions.
//
// Store implements dispatch.Action. Each accepted submission becomes one row
// in the events table and is referenced by <base_url>/<id>. Deliveries that
// repeat an interaction id are matched by a BLAKE3 fingerprint and return the
// original reference instead of creating a second event.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/mattjoyce/gitevents/internal/interaction"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("event not found")

// Event is a stored event.
type Event struct {
	ID            string        `json:"id"`
	InteractionID string        `json:"interaction_id,omitempty"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Location      string        `json:"location"`
	StartsAt      time.Time     `json:"starts_at"`
	Duration      time.Duration `json:"-"`
	DurationText  string        `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Store writes events to SQLite. It is safe for concurrent use.
type Store struct {
	db       *sql.DB
	baseURL  string
	location *time.Location
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the timezone submitted dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTimeout bounds each CreateEvent call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store. baseURL prefixes returned references.
func New(db *sql.DB, baseURL string, opts ...Option) *Store {
	s := &Store{
		db:       db,
		baseURL:  strings.TrimRight(baseURL, "/"),
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEvent validates and stores a submission and returns its reference.
func (s *Store) CreateEvent(ctx context.Context, sub interaction.FormSubmission) (string, error) {
	sched, err := ParseSchedule(sub.Fields, s.location)
	if err != nil {
		return "", err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var fp any
	if sub.InteractionID != "" {
		fp = Fingerprint(sub)
	}

	id := uuid.NewString()
	var insertedID string
	err = s.db.QueryRowContext(ctx, `
INSERT INTO events(id, fingerprint, interaction_id, name, description, location, starts_at, duration_s, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO NOTHING
RETURNING id;
`, id, fp, nullIfEmpty(sub.InteractionID), sched.Name, sched.Description, sched.Location,
		sched.StartsAt.UTC().Format(time.RFC3339), int64(sched.Duration/time.Second),
		s.now().UTC().Format(time.RFC3339Nano)).Scan(&insertedID)
	if errors.Is(err, sql.ErrNoRows) {
		// Fingerprint already stored: a repeated delivery.
		if err := s.db.QueryRowContext(ctx, "SELECT id FROM events WHERE fingerprint = ?;", fp).Scan(&insertedID); err != nil {
			return "", fmt.Errorf("lookup existing event: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	return s.Reference(insertedID), nil
}

// Reference returns the public link for an event id.
func (s *Store) Reference(id string) string {
	return s.baseURL + "/" + id
}

// Get returns one event.
func (s *Store) Get(ctx context.Context, id string) (*Event, error) {
	var (
		ev            Event
		interactionID sql.NullString
		startsAt      string
		createdAt     string
		durationS     int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, interaction_id, name, description, location, starts_at, duration_s, created_at
FROM events WHERE id = ?;
`, id).Scan(&ev.ID, &interactionID, &ev.Name, &ev.Description, &ev.Location, &startsAt, &durationS, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}

	ev.InteractionID = interactionID.String
	if ev.StartsAt, err = time.Parse(time.RFC3339, startsAt); err != nil {
		return nil, fmt.Errorf("parse starts_at: %w", err)
	}
	if ev.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	ev.StartsAt = ev.StartsAt.In(s.location)
	ev.Duration = time.Duration(durationS) * time.Second
	ev.DurationText = ev.Duration.String()
	return &ev, nil
}

// Fingerprint is the BLAKE3 hash of the interaction id and field values.
func Fingerprint(sub interaction.FormSubmission) string {
	h := blake3.New()
	for _, part := range []string{
		sub.InteractionID,
		sub.Fields.Name,
		sub.Fields.Description,
		sub.Fields.Location,
		sub.Fields.Date,
		sub.Fields.Time,
		sub.Fields.Duration,
	} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
