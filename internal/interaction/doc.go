// Package interaction authenticates and decodes Discord interaction webhooks.
//
// # Security Model
//
//   - Every request carries an Ed25519 signature over timestamp||body in
//     X-Signature-Ed25519, with the timestamp in X-Signature-Timestamp.
//   - Nothing in the body is interpreted until Verify succeeds.
//   - Bad hex, wrong lengths and failed verification all surface to callers
//     as one generic signature failure.
//
// # Decoding
//
// Decode reads the top-level "type" discriminant first and only then parses
// the rest of the body for that variant:
//
//	1  PING                -> HealthCheck
//	2  APPLICATION_COMMAND -> NewCommandInvocation
//	5  MODAL_SUBMIT        -> FormSubmission
//
// Any other value is a decode error.
package interaction
