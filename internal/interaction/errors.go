package interaction

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Kinds do not overlap.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindConfiguration
	KindEncoding
	KindSignatureInvalid
	KindDecode
	KindExternalAction
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConfiguration:
		return "configuration_error"
	case KindEncoding:
		return "encoding_error"
	case KindSignatureInvalid:
		return "signature_invalid"
	case KindDecode:
		return "decode_error"
	case KindExternalAction:
		return "external_action_error"
	default:
		return "unknown"
	}
}

// Reason narrows a Kind for logging and tests. It is never sent to callers.
type Reason string

const (
	ReasonMissingCredentials     Reason = "missing_credentials"
	ReasonUnknownInteractionType Reason = "unknown_interaction_type"
	ReasonMissingDiscriminant    Reason = "missing_discriminant"
	ReasonMalformedBody          Reason = "malformed_body"
)

// Sentinels for errors.Is matching against a Kind.
var (
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrConfiguration    = &Error{Kind: KindConfiguration}
	ErrEncoding         = &Error{Kind: KindEncoding}
	ErrSignatureInvalid = &Error{Kind: KindSignatureInvalid}
	ErrDecode           = &Error{Kind: KindDecode}
	ErrExternalAction   = &Error{Kind: KindExternalAction}

	ErrMissingCredentials     = &Error{Kind: KindInvalidInput, Reason: ReasonMissingCredentials}
	ErrUnknownInteractionType = &Error{Kind: KindDecode, Reason: ReasonUnknownInteractionType}
	ErrMissingDiscriminant    = &Error{Kind: KindDecode, Reason: ReasonMissingDiscriminant}
	ErrMalformedBody          = &Error{Kind: KindDecode, Reason: ReasonMalformedBody}
)

// Error is a classified pipeline error.
type Error struct {
	Kind   Kind
	Reason Reason
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + string(e.Reason)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// KindOf returns the Kind of err, or 0 if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ReasonOf returns the Reason of err, or "" if none.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func missingCredentials() error {
	return &Error{
		Kind:   KindInvalidInput,
		Reason: ReasonMissingCredentials,
		Detail: "You need to provide both signature and timestamp",
	}
}

func decodeError(reason Reason, format string, args ...any) error {
	return &Error{
		Kind:   KindDecode,
		Reason: reason,
		Detail: fmt.Sprintf(format, args...),
	}
}
