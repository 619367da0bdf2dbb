package domain

// Direction is the requested outcome of a session transition.
type Direction string

const (
	// DirectionIn logs the visitor in.
	DirectionIn Direction = "in"

	// DirectionOut logs the visitor out.
	DirectionOut Direction = "out"
)

// ParseDirection validates a raw direction value.
// Only "in" and "out" are accepted; anything else yields an InvalidDirectionError.
func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(raw); d {
	case DirectionIn, DirectionOut:
		return d, nil
	default:
		return "", NewInvalidDirectionError(raw)
	}
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionIn {
		return DirectionOut
	}

	return DirectionIn
}

// Phase is the explicit state the two session flags collapse.
type Phase string

const (
	PhaseLoggedOut  Phase = "logged_out"
	PhaseLoggingIn  Phase = "logging_in"
	PhaseLoggedIn   Phase = "logged_in"
	PhaseLoggingOut Phase = "logging_out"
)

// SessionState is the observable state of a session toggle.
// The zero value is the initial state: logged out, not loading.
type SessionState struct {
	LoggedIn bool
	Loading  bool

	// Pending is the direction of the in-flight transition.
	// It is set if and only if Loading is true.
	Pending Direction
}

// Phase derives the explicit state from the flags.
func (s SessionState) Phase() Phase {
	switch {
	case s.Loading && s.Pending == DirectionIn:
		return PhaseLoggingIn
	case s.Loading:
		return PhaseLoggingOut
	case s.LoggedIn:
		return PhaseLoggedIn
	default:
		return PhaseLoggedOut
	}
}

// NextDirection is the direction a toggle button would request:
// the opposite of the current login state.
func (s SessionState) NextDirection() Direction {
	if s.LoggedIn {
		return DirectionOut
	}

	return DirectionIn
}
