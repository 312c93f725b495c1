package interaction

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Component types inside a modal submission.
const (
	componentActionRow = 1
	componentTextInput = 4
)

// Decode turns a verified request body into exactly one Interaction.
//
// Only the top-level "type" field is read before the variant is known; the
// rest of the body is parsed according to that variant. Unknown or missing
// discriminants are errors, never a default variant.
func Decode(body []byte) (Interaction, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, decodeError(ReasonMalformedBody, "body is not a JSON object")
	}
	if top == nil {
		return nil, decodeError(ReasonMalformedBody, "body is not a JSON object")
	}

	t, err := discriminant(top["type"])
	if err != nil {
		return nil, err
	}

	switch t {
	case TypePing:
		return HealthCheck{}, nil
	case TypeApplicationCommand:
		return decodeCommand(top)
	case TypeModalSubmit:
		return decodeModalSubmit(top)
	default:
		return nil, decodeError(ReasonUnknownInteractionType, "type %d", int(t))
	}
}

func discriminant(raw json.RawMessage) (Type, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, decodeError(ReasonMissingDiscriminant, "missing field \"type\"")
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || raw[0] == '"' {
		return 0, decodeError(ReasonUnknownInteractionType, "field \"type\" is not a number")
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, decodeError(ReasonUnknownInteractionType, "field \"type\" is not an integer")
	}
	return Type(v), nil
}

type commandData struct {
	Name string `json:"name"`
}

func decodeCommand(top map[string]json.RawMessage) (Interaction, error) {
	inv := NewCommandInvocation{}
	raw, ok := top["data"]
	if !ok {
		return inv, nil
	}
	var data commandData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, decodeError(ReasonMalformedBody, "application command data: %v", err)
	}
	inv.CommandName = data.Name
	return inv, nil
}

type modalSubmitData struct {
	CustomID   string      `json:"custom_id"`
	Components []actionRow `json:"components"`
}

type actionRow struct {
	Type       int         `json:"type"`
	Components []textInput `json:"components"`
}

type textInput struct {
	Type     int     `json:"type"`
	CustomID string  `json:"custom_id"`
	Value    *string `json:"value"`
}

func decodeModalSubmit(top map[string]json.RawMessage) (Interaction, error) {
	raw, ok := top["data"]
	if !ok {
		return nil, decodeError(ReasonMalformedBody, "modal submit without data")
	}

	var data modalSubmitData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, decodeError(ReasonMalformedBody, "modal submit data: %v", err)
	}
	if data.CustomID != NewEventForm.CustomID {
		return nil, decodeError(ReasonMalformedBody, "unexpected modal %q", data.CustomID)
	}

	var fields EventFields
	seen := make(map[string]bool, len(NewEventForm.Fields))
	for _, row := range data.Components {
		if row.Type != componentActionRow {
			continue
		}
		for _, in := range row.Components {
			if in.Type != componentTextInput {
				continue
			}
			if _, known := fields.Get(in.CustomID); !known {
				continue
			}
			if in.Value == nil {
				return nil, decodeError(ReasonMalformedBody, "field %q has no value", in.CustomID)
			}
			if fields.set(in.CustomID, *in.Value) {
				seen[in.CustomID] = true
			}
		}
	}

	for _, f := range NewEventForm.Fields {
		if !seen[f.ID] {
			return nil, decodeError(ReasonMalformedBody, "missing field %q", f.ID)
		}
	}

	sub := FormSubmission{Fields: fields}
	if id, ok := top["id"]; ok {
		var s string
		if err := json.Unmarshal(id, &s); err == nil {
			sub.InteractionID = s
		}
	}
	return sub, nil
}
