package requests

// transitions holds the legal status moves. Cancellation is terminal from any
// non-terminal state; everything else is monotonic.
var transitions = map[string]map[string]bool{
	StatusPending: {
		StatusAccepted:   true,
		StatusInProgress: true,
		StatusCancelled:  true,
	},
	StatusAccepted: {
		StatusInProgress: true,
		StatusCancelled:  true,
	},
	StatusInProgress: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
}

// CanTransition reports whether from→to is a legal lifecycle move.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// IsTerminal reports whether a status accepts no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// IsOpen reports whether the request still needs (or is receiving) service.
func IsOpen(status string) bool {
	switch status {
	case StatusPending, StatusAccepted, StatusInProgress:
		return true
	}
	return false
}

// RequesterStep maps a status to the requester's 1-indexed progress step:
// 1=Created, 2=Searching, 3=Assigned, 4=En route. Cancelled returns 0, the
// sentinel for the cancelled rendering. Unknown statuses default to 1.
func RequesterStep(status string) int {
	switch status {
	case StatusPending:
		return 1
	case StatusAccepted:
		return 3
	case StatusInProgress:
		return 4
	case StatusCompleted:
		return 4
	case StatusCancelled:
		return 0
	default:
		return 1
	}
}

// MechanicStep maps a status to the mechanic's 0-indexed progress step:
// 0=Awaiting acceptance, 1=Accepted, 2=Arrival confirmed, 3=Completed.
// Anything unrecognized (cancelled included) defaults to 0.
func MechanicStep(status string) int {
	switch status {
	case StatusPending:
		return 0
	case StatusAccepted:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}
