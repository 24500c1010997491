package requests

import (
	"context"
	"errors"
	"time"

	"roadside-service/pkg/roles"
)

// Sentinel errors surfaced by stores. Handlers map these to HTTP statuses.
var (
	// ErrNotFound means no row matched the lookup.
	ErrNotFound = errors.New("request not found")
	// ErrConflict means a conditional write matched zero rows: the request was
	// already taken or is not in a state the transition allows.
	ErrConflict = errors.New("request already taken or in invalid state")
	// ErrForbidden means the actor is not allowed to perform the transition.
	ErrForbidden = errors.New("actor not allowed to modify this request")
)

// Store is the durable table of service requests. Every transition method is a
// conditional write: the status (and assignment) precondition travels with the
// update, and a failed precondition returns ErrConflict, never a silent success.
type Store interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	// LatestOpen returns the most recent open row for a requester, or nil when
	// there is none.
	LatestOpen(ctx context.Context, requesterID string) (*Request, error)
	// List returns all requests sorted by creation time descending.
	List(ctx context.Context) ([]*Request, error)

	// Accept moves pending→in_progress and assigns the mechanic atomically.
	Accept(ctx context.Context, id, mechanicID, mechanicName string, at time.Time) (*Request, error)
	// Complete moves in_progress→completed for the assigned mechanic only.
	Complete(ctx context.Context, id, mechanicID string, at time.Time) (*Request, error)
	// Cancel terminates an open request. Requesters may cancel their own
	// pending requests; mechanics may cancel pending requests or their own
	// accepted/in_progress work.
	Cancel(ctx context.Context, id, actorID string, role roles.Role) (*Request, error)
	// UpdateMechanicPosition refreshes the live coordinates during active
	// service (assigned mechanic only).
	UpdateMechanicPosition(ctx context.Context, id, mechanicID string, lat, lng float64) (*Request, error)
	// Delete removes a row outright (account-deletion path).
	Delete(ctx context.Context, id string) error
}
