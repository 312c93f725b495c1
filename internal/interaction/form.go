package interaction

// Form field ids. They are the custom_id values of the modal text inputs and
// the keys read back from a submission.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldDate        = "date"
	FieldTime        = "time"
	FieldDuration    = "duration"
)

// InputStyle is the text input display style.
type InputStyle int

const (
	StyleShort     InputStyle = 1
	StyleParagraph InputStyle = 2
)

// FormField describes one labeled text input.
type FormField struct {
	ID          string
	Label       string
	Placeholder string
	Style       InputStyle
	MinLength   int
	MaxLength   int
}

// Form describes a modal dialog.
type Form struct {
	CustomID string
	Title    string
	Fields   []FormField
}

// NewEventForm is the modal shown for the new_event command. Field order is
// the order the platform renders them.
var NewEventForm = Form{
	CustomID: "new_event",
	Title:    "New Event",
	Fields: []FormField{
		{ID: FieldName, Label: "Name", Placeholder: "Event name", Style: StyleShort, MinLength: 1, MaxLength: 100},
		{ID: FieldDescription, Label: "Description", Placeholder: "A concise description", Style: StyleParagraph, MinLength: 1, MaxLength: 100},
		{ID: FieldLocation, Label: "Location", Placeholder: "online", Style: StyleShort, MinLength: 1, MaxLength: 100},
		{ID: FieldDate, Label: "Date", Placeholder: "15/12/2022", Style: StyleShort, MinLength: 1, MaxLength: 100},
		{ID: FieldTime, Label: "Time", Placeholder: "12:30pm", Style: StyleShort, MinLength: 1, MaxLength: 100},
		{ID: FieldDuration, Label: "Duration", Placeholder: "1h30m", Style: StyleShort, MinLength: 1, MaxLength: 100},
	},
}
