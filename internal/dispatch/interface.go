package dispatch

import (
	"context"

	"github.com/mattjoyce/gitevents/internal/interaction"
)

//go:generate mockgen -destination=mocks/mock_action.go -package=mocks github.com/mattjoyce/gitevents/internal/dispatch Action

// Action performs the side effect behind a completed form. It returns a
// reference (usually a link) that is shown to the channel.
type Action interface {
	CreateEvent(ctx context.Context, sub interaction.FormSubmission) (string, error)
}
