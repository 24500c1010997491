package events

import "encoding/json"

// Change types carried by request.changed payloads.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// LatLng is a coordinate pair used in event payloads.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RequestCreatedEvent is published to request.created.
type RequestCreatedEvent struct {
	RequestID   string  `json:"request_id"`
	RequesterID string  `json:"requester_id"`
	ServiceName string  `json:"service_name"`
	Category    string  `json:"category"`
	Location    *LatLng `json:"location,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// RequestChangedEvent is published to request.changed on every mutation.
// Request is the full row snapshot; DELETE events carry only the ids.
type RequestChangedEvent struct {
	Type        string          `json:"type"` // INSERT | UPDATE | DELETE
	RequestID   string          `json:"request_id"`
	RequesterID string          `json:"requester_id"`
	Request     json.RawMessage `json:"request,omitempty"`
}

// RequestCompletedEvent is published to request.completed.
type RequestCompletedEvent struct {
	RequestID       string `json:"request_id"`
	MechanicID      string `json:"mechanic_id"`
	RequesterID     string `json:"requester_id"`
	CompletedAt     string `json:"completed_at"`
	DurationSeconds int64  `json:"duration_seconds"`
}
