package mechanics

import "time"

// Mechanic represents a mechanic account.
type Mechanic struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Workshop     string    `json:"workshop,omitempty"`
	Status       string    `json:"status"` // available | busy | offline
	Rating       float64   `json:"rating"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the body for POST /mechanics/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Workshop string `json:"workshop"`
}

// LoginRequest is the body for POST /mechanics/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LocationUpdate is the body for PATCH /mechanics/:id/location.
type LocationUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PushTokenRequest is the body for PUT /mechanics/push-token.
type PushTokenRequest struct {
	Token string `json:"token"`
}

// AuthResponse is returned on register / login.
type AuthResponse struct {
	Token    string    `json:"token"`
	Mechanic *Mechanic `json:"mechanic,omitempty"`
}
