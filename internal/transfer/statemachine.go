package transfer

import "fmt"

// transitions is the full table of legal status transitions. A cancel is
// accepted from any non-terminal working status, and a fatal driver error
// is accepted from every status where a driver is active (connecting
// through running); terminal statuses accept only a reset. Everything else is an illegal transition, which callers
// are expected to log and ignore so that duplicate or out-of-order events
// can never corrupt job state.
var transitions = map[Status]map[Event]Status{
	StatusIdle: {
		EventStart: StatusConnecting,
	},
	StatusConnecting: {
		EventAuthChallenge: StatusWaitingAuth,
		EventDriverError:   StatusError,
		EventCancel:        StatusCancelled,
	},
	StatusWaitingAuth: {
		EventAuthenticated: StatusRunning,
		EventAuthTimeout:   StatusError,
		EventDriverError:   StatusError,
		EventCancel:        StatusCancelled,
	},
	StatusRunning: {
		EventItemsDone:   StatusCompleted,
		EventDriverError: StatusError,
		EventCancel:      StatusCancelled,
	},
	StatusCompleted: {
		EventReset: StatusIdle,
	},
	StatusError: {
		EventReset: StatusIdle,
	},
	StatusCancelled: {
		EventReset: StatusIdle,
	},
}

// nextStatus returns the status that results from applying event to from.
// It returns ErrIllegalTransition (wrapped) when the event is not legal
// from the current status.
func nextStatus(from Status, event Event) (Status, error) {
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %q in status %q", ErrIllegalTransition, event, from)
}
