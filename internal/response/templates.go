package response

import (
	"fmt"
	"strings"

	"github.com/mattjoyce/gitevents/internal/dispatch"
	"github.com/mattjoyce/gitevents/internal/interaction"
)

// messageTemplate is a channel message with an optional %s slot for the
// reference.
type messageTemplate struct {
	Format    string
	Ephemeral bool
}

var (
	successMessage = messageTemplate{Format: "An event was just created: %s"}
	failureMessage = messageTemplate{Format: "There was an error creating your event", Ephemeral: true}
)

// templates maps each outcome to its callback body.
var templates = map[string]func(dispatch.Outcome) Callback{
	dispatch.Acknowledge{}.Name(): func(dispatch.Outcome) Callback {
		return Callback{Type: CallbackPong}
	},
	dispatch.PresentForm{}.Name(): func(dispatch.Outcome) Callback {
		return modal(interaction.NewEventForm)
	},
	dispatch.ActionSucceeded{}.Name(): func(o dispatch.Outcome) Callback {
		return message(successMessage, o.(dispatch.ActionSucceeded).Reference)
	},
	dispatch.ActionFailed{}.Name(): func(dispatch.Outcome) Callback {
		return message(failureMessage, "")
	},
}

func modal(form interaction.Form) Callback {
	rows := make([]ActionRow, 0, len(form.Fields))
	for _, f := range form.Fields {
		rows = append(rows, ActionRow{
			Type: componentActionRow,
			Components: []TextInput{{
				Type:        componentTextInput,
				CustomID:    f.ID,
				Label:       f.Label,
				Style:       int(f.Style),
				MinLength:   f.MinLength,
				MaxLength:   f.MaxLength,
				Placeholder: f.Placeholder,
				Required:    true,
			}},
		})
	}
	return Callback{
		Type: CallbackModal,
		Data: &CallbackData{
			Title:      form.Title,
			CustomID:   form.CustomID,
			Components: rows,
		},
	}
}

func message(t messageTemplate, reference string) Callback {
	content := t.Format
	if strings.Contains(t.Format, "%s") {
		content = fmt.Sprintf(t.Format, reference)
	}
	data := &CallbackData{Content: content}
	if t.Ephemeral {
		data.Flags = FlagEphemeral
	}
	return Callback{Type: CallbackChannelMessageWithSource, Data: data}
}
