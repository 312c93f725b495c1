package eventstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattjoyce/gitevents/internal/interaction"
)

// ErrInvalidEvent wraps every validation failure of submitted fields.
var ErrInvalidEvent = errors.New("invalid event")

const dateLayout = "02/01/2006"

var timeLayouts = []string{"3:04pm", "3pm", "15:04"}

// maxDuration bounds a single event.
const maxDuration = 7 * 24 * time.Hour

// Schedule is the validated form of EventFields.
type Schedule struct {
	Name        string
	Description string
	Location    string
	StartsAt    time.Time
	Duration    time.Duration
}

// ParseSchedule validates submitted fields. Dates are DD/MM/YYYY, times are
// 12-hour ("12:30pm", "3pm") or 24-hour ("15:04"), durations use Go syntax
// ("1h30m").
func ParseSchedule(f interaction.EventFields, loc *time.Location) (Schedule, error) {
	if loc == nil {
		loc = time.UTC
	}

	name := strings.TrimSpace(f.Name)
	if name == "" {
		return Schedule{}, fmt.Errorf("%w: name is empty", ErrInvalidEvent)
	}
	location := strings.TrimSpace(f.Location)
	if location == "" {
		return Schedule{}, fmt.Errorf("%w: location is empty", ErrInvalidEvent)
	}

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(f.Date), loc)
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: date %q must look like 15/12/2022", ErrInvalidEvent, f.Date)
	}

	clock, err := parseClock(f.Time)
	if err != nil {
		return Schedule{}, err
	}

	d, err := time.ParseDuration(strings.TrimSpace(f.Duration))
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: duration %q must look like 1h30m", ErrInvalidEvent, f.Duration)
	}
	if d <= 0 || d > maxDuration {
		return Schedule{}, fmt.Errorf("%w: duration %s out of range", ErrInvalidEvent, d)
	}
	// Stored in whole seconds.
	if d%time.Second != 0 {
		return Schedule{}, fmt.Errorf("%w: duration %s is not a whole number of seconds", ErrInvalidEvent, d)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	return Schedule{
		Name:        name,
		Description: strings.TrimSpace(f.Description),
		Location:    location,
		StartsAt:    start,
		Duration:    d,
	}, nil
}

func parseClock(s string) (time.Time, error) {
	v := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q must look like 12:30pm", ErrInvalidEvent, s)
}
