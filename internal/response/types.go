package response

// Interaction callback types.
const (
	CallbackPong                     = 1
	CallbackChannelMessageWithSource = 4
	CallbackModal                    = 9
)

// FlagEphemeral makes a message visible only to the invoking user.
const FlagEphemeral = 1 << 6

// Component types used in modal responses.
const (
	componentActionRow = 1
	componentTextInput = 4
)

// ContentType is the media type of every response body.
const ContentType = "application/json"

// Callback is the JSON body returned to the platform.
type Callback struct {
	Type int           `json:"type"`
	Data *CallbackData `json:"data,omitempty"`
}

// CallbackData carries either a message or a modal.
type CallbackData struct {
	Content    string      `json:"content,omitempty"`
	Flags      int         `json:"flags,omitempty"`
	CustomID   string      `json:"custom_id,omitempty"`
	Title      string      `json:"title,omitempty"`
	Components []ActionRow `json:"components,omitempty"`
}

// ActionRow holds one text input in a modal.
type ActionRow struct {
	Type       int         `json:"type"`
	Components []TextInput `json:"components"`
}

// TextInput is a modal input field.
type TextInput struct {
	Type        int    `json:"type"`
	CustomID    string `json:"custom_id"`
	Label       string `json:"label"`
	Style       int    `json:"style"`
	MinLength   int    `json:"min_length"`
	MaxLength   int    `json:"max_length"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
}

// ErrorBody is the JSON body for pipeline errors.
type ErrorBody struct {
	Message string `json:"message"`
}

// Wire is a complete HTTP response.
type Wire struct {
	Status      int
	ContentType string
	Body        []byte
}
