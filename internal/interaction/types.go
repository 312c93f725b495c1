package interaction

// Type is the numeric interaction discriminant sent by the platform.
type Type int

const (
	TypePing               Type = 1
	TypeApplicationCommand Type = 2
	TypeModalSubmit        Type = 5
)

func (t Type) String() string {
	switch t {
	case TypePing:
		return "ping"
	case TypeApplicationCommand:
		return "application_command"
	case TypeModalSubmit:
		return "modal_submit"
	default:
		return "unknown"
	}
}

// Interaction is a decoded request body. The set of implementations is closed:
// HealthCheck, NewCommandInvocation and FormSubmission.
type Interaction interface {
	Type() Type
	sealed()
}

// HealthCheck is the platform connectivity probe.
type HealthCheck struct{}

// NewCommandInvocation is a user running the registered command.
type NewCommandInvocation struct {
	// CommandName is informational; dispatch does not depend on it.
	CommandName string
}

// FormSubmission is a completed new-event form.
type FormSubmission struct {
	// InteractionID is the platform's id for this delivery. It may be empty.
	InteractionID string
	Fields        EventFields
}

func (HealthCheck) Type() Type          { return TypePing }
func (NewCommandInvocation) Type() Type { return TypeApplicationCommand }
func (FormSubmission) Type() Type       { return TypeModalSubmit }

func (HealthCheck) sealed()          {}
func (NewCommandInvocation) sealed() {}
func (FormSubmission) sealed()       {}

// EventFields are the six values collected by the new-event form.
type EventFields struct {
	Name        string
	Description string
	Location    string
	Date        string
	Time        string
	Duration    string
}

// Get returns the value for a form field id.
func (f EventFields) Get(id string) (string, bool) {
	switch id {
	case FieldName:
		return f.Name, true
	case FieldDescription:
		return f.Description, true
	case FieldLocation:
		return f.Location, true
	case FieldDate:
		return f.Date, true
	case FieldTime:
		return f.Time, true
	case FieldDuration:
		return f.Duration, true
	}
	return "", false
}

func (f *EventFields) set(id, value string) bool {
	switch id {
	case FieldName:
		f.Name = value
	case FieldDescription:
		f.Description = value
	case FieldLocation:
		f.Location = value
	case FieldDate:
		f.Date = value
	case FieldTime:
		f.Time = value
	case FieldDuration:
		f.Duration = value
	default:
		return false
	}
	return true
}
