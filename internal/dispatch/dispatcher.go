package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mattjoyce/gitevents/internal/interaction"
	"github.com/mattjoyce/gitevents/internal/log"
)

// Dispatcher routes interactions to outcomes.
type Dispatcher struct {
	action Action
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher that runs action for form submissions.
func New(action Action, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		action: action,
		logger: log.WithComponent("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch returns the outcome for in. It never fails: action errors become
// ActionFailed.
func (d *Dispatcher) Dispatch(ctx context.Context, in interaction.Interaction) Outcome {
	switch v := in.(type) {
	case interaction.HealthCheck:
		return Acknowledge{}
	case interaction.NewCommandInvocation:
		return PresentForm{}
	case interaction.FormSubmission:
		return d.submit(ctx, v)
	default:
		// Decode only produces the variants above.
		panic(fmt.Sprintf("dispatch: unexpected interaction %T", in))
	}
}

func (d *Dispatcher) submit(ctx context.Context, sub interaction.FormSubmission) Outcome {
	if d.action == nil {
		d.logger.Error("no action configured for form submission")
		return ActionFailed{}
	}

	ref, err := d.createEvent(ctx, sub)
	if err != nil {
		d.logger.Warn("create event failed",
			"interaction_id", sub.InteractionID,
			"error", &interaction.Error{Kind: interaction.KindExternalAction, Err: err},
		)
		return ActionFailed{}
	}
	if ref == "" {
		d.logger.Warn("create event returned empty reference", "interaction_id", sub.InteractionID)
		return ActionFailed{}
	}

	d.logger.Info("event created", "interaction_id", sub.InteractionID, "reference", ref)
	return ActionSucceeded{Reference: ref}
}

// createEvent calls the action and converts a panic into an error.
func (d *Dispatcher) createEvent(ctx context.Context, sub interaction.FormSubmission) (ref string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return d.action.CreateEvent(ctx, sub)
}
