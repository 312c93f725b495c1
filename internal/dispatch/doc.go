// Package dispatch maps decoded interactions to outcomes.
//
// The mapping is a total function over the interaction variants:
//
//	HealthCheck          -> Acknowledge
//	NewCommandInvocation -> PresentForm
//	FormSubmission       -> ActionSucceeded(reference) | ActionFailed
//
// Only the form submission path has a side effect: it calls the configured
// Action once. Action errors (and panics) are logged and turned into
// ActionFailed so the platform always receives a well-formed reply. There is
// no retry.
package dispatch
