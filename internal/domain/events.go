package domain

// Event type identifiers.
const (
	EventQuotePicked                 = "quote.picked"
	EventSessionTransitionStarted    = "session.transition_started"
	EventSessionTransitionCompleted  = "session.transition_completed"
	EventSessionTransitionSuperseded = "session.transition_superseded"
	EventSessionTransitionRejected   = "session.transition_rejected"
)

// QuotePicked is emitted every time the picker returns a quote.
type QuotePicked struct {
	Index int
	Quote Quote
}

// EventType implements ports.Event.
func (e QuotePicked) EventType() string { return EventQuotePicked }

// Payload implements ports.Event.
func (e QuotePicked) Payload() any { return e }

// SessionTransition is emitted at each step of a toggle transition.
type SessionTransition struct {
	Type      string
	Direction Direction

	// Raw is the requested direction as received. Only differs from
	// Direction for rejected transitions.
	Raw   string
	State SessionState
}

// EventType implements ports.Event.
func (e SessionTransition) EventType() string { return e.Type }

// Payload implements ports.Event.
func (e SessionTransition) Payload() any { return e }
