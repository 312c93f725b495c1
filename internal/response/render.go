package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mattjoyce/gitevents/internal/dispatch"
	"github.com/mattjoyce/gitevents/internal/interaction"
)

// Error messages returned to callers. Signature and encoding failures share
// one message.
const (
	msgMissingCredentials = "Invalid Input: You need to provide both signature and timestamp"
	msgInvalidSignature   = "invalid request signature"
	msgDecode             = "Parsing Body Error: unrecognized interaction"
	msgInternal           = "internal server error"
	msgPayloadTooLarge    = "payload too large"
)

// Body returns the callback body for an outcome.
func Body(o dispatch.Outcome) Callback {
	tmpl, ok := templates[o.Name()]
	if !ok {
		panic(fmt.Sprintf("response: no template for outcome %q", o.Name()))
	}
	return tmpl(o)
}

// Render returns the wire response for an outcome. It is always 200: a failed
// action is reported in the body.
func Render(o dispatch.Outcome) Wire {
	return encode(http.StatusOK, Body(o))
}

// RenderError returns the wire response for a pipeline error. InvalidInput is
// 400 and everything else is 500.
func RenderError(err error) Wire {
	switch interaction.KindOf(err) {
	case interaction.KindInvalidInput:
		return encode(http.StatusBadRequest, ErrorBody{Message: msgMissingCredentials})
	case interaction.KindEncoding, interaction.KindSignatureInvalid:
		return encode(http.StatusInternalServerError, ErrorBody{Message: msgInvalidSignature})
	case interaction.KindDecode:
		return encode(http.StatusInternalServerError, ErrorBody{Message: msgDecode})
	default:
		return encode(http.StatusInternalServerError, ErrorBody{Message: msgInternal})
	}
}

// PayloadTooLarge is returned when a body exceeds the configured limit.
func PayloadTooLarge() Wire {
	return encode(http.StatusRequestEntityTooLarge, ErrorBody{Message: msgPayloadTooLarge})
}

func encode(status int, v any) Wire {
	body, err := json.Marshal(v)
	if err != nil {
		// Only fixed shapes are encoded here.
		panic(fmt.Sprintf("response: encode %T: %v", v, err))
	}
	return Wire{Status: status, ContentType: ContentType, Body: body}
}

// Write sends w to an http.ResponseWriter.
func Write(rw http.ResponseWriter, w Wire) {
	rw.Header().Set("Content-Type", w.ContentType)
	rw.WriteHeader(w.Status)
	_, _ = rw.Write(w.Body)
}
