package requests

import "time"

// Status enumerates the lifecycle states. The literal tokens cross the wire
// and the database; they must match exactly.
const (
	StatusPending    = "pending"
	StatusAccepted   = "accepted"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Service categories offered by the app.
const (
	CategoryEmergency = "emergency"
	CategoryDetail    = "detail"
)

// Request represents one assistance job from creation to terminal state.
type Request struct {
	ID             string     `json:"id"`
	RequesterID    string     `json:"requester_id"`
	RequesterEmail string     `json:"requester_email"`
	RequesterLat   *float64   `json:"requester_lat,omitempty"`
	RequesterLng   *float64   `json:"requester_lng,omitempty"`
	ServiceName    string     `json:"service_name"`
	Description    string     `json:"description,omitempty"`
	Category       string     `json:"category"`
	IconRef        string     `json:"icon_ref,omitempty"`
	MechanicID     *string    `json:"mechanic_id,omitempty"`
	MechanicName   *string    `json:"mechanic_name,omitempty"`
	MechanicLat    *float64   `json:"mechanic_lat,omitempty"`
	MechanicLng    *float64   `json:"mechanic_lng,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// AssignedTo reports whether the request is held by the given mechanic.
func (r *Request) AssignedTo(mechanicID string) bool {
	return r.MechanicID != nil && *r.MechanicID == mechanicID
}

// CreateInput is the body for POST /requests.
type CreateInput struct {
	ServiceName string   `json:"service_name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	IconRef     string   `json:"icon_ref"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

// PositionUpdate is the body for PATCH /requests/:id/position.
type PositionUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
