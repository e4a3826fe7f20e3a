package timer

import "github.com/hyperworkchat/hyperwork/internal/apperr"

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the engine's current state.
	ErrInvalidTransition = &apperr.Error{
		Message: "invalid timer transition",
	}

	// ErrSessionNotPersisted is reported for writes to a session whose
	// create failed.
	ErrSessionNotPersisted = &apperr.Error{
		Message: "session was never saved",
	}

	errSessionCmd = &apperr.Error{
		Message: "unable to parse session command",
	}

	errNoUser = &apperr.Error{
		Message: "a signed-in user is required to run the timer",
	}
)
