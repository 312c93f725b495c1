package dispatch

// Outcome is the result of dispatching one interaction. The set of
// implementations is closed.
type Outcome interface {
	Name() string
	outcome()
}

// Acknowledge answers a health check.
type Acknowledge struct{}

// PresentForm asks the platform to open the new-event form.
type PresentForm struct{}

// ActionSucceeded reports a created event. Reference is shown to the channel.
type ActionSucceeded struct {
	Reference string
}

// ActionFailed reports that the event could not be created.
type ActionFailed struct{}

func (Acknowledge) Name() string     { return "acknowledge" }
func (PresentForm) Name() string     { return "present_form" }
func (ActionSucceeded) Name() string { return "action_succeeded" }
func (ActionFailed) Name() string    { return "action_failed" }

func (Acknowledge) outcome()     {}
func (PresentForm) outcome()     {}
func (ActionSucceeded) outcome() {}
func (ActionFailed) outcome()    {}
