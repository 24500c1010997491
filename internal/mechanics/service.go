package mechanics

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"roadside-service/pkg/jwt"
	rredis "roadside-service/pkg/redis"
	"roadside-service/pkg/roles"
)

// Service contains mechanic-account business logic.
type Service struct {
	db    *pgxpool.Pool
	redis *rredis.Client
}

// NewService creates a mechanic service.
func NewService(db *pgxpool.Pool, redis *rredis.Client) *Service {
	return &Service{db: db, redis: redis}
}

// Register creates a new mechanic account and returns a JWT.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var exists bool
	_ = s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM mechanics WHERE email=$1)", req.Email).Scan(&exists)
	if exists {
		return nil, errors.New("email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.db.Exec(ctx,
		`INSERT INTO mechanics (id,name,email,phone,password_hash,workshop,status,rating)
		 VALUES ($1,$2,$3,$4,$5,$6,'available',5.0)`,
		id, req.Name, req.Email, req.Phone, string(hash), req.Workshop)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Generate(id, req.Email, roles.Mechanic)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		Mechanic: &Mechanic{
			ID: id, Name: req.Name, Email: req.Email, Phone: req.Phone,
			Workshop: req.Workshop, Status: "available", Rating: 5.0,
		},
	}, nil
}

// Login authenticates a mechanic and returns a JWT.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var m Mechanic
	var hash string
	err := s.db.QueryRow(ctx,
		`SELECT id,name,email,phone,password_hash,workshop,status,rating,created_at
		 FROM mechanics WHERE email=$1`, req.Email).
		Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &hash,
			&m.Workshop, &m.Status, &m.Rating, &m.CreatedAt)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return nil, errors.New("invalid credentials")
	}

	token, err := jwt.Generate(m.ID, m.Email, roles.Mechanic)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Mechanic: &m}, nil
}

// GetByID fetches a mechanic by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*Mechanic, error) {
	var m Mechanic
	err := s.db.QueryRow(ctx,
		`SELECT id,name,email,phone,workshop,status,rating,created_at
		 FROM mechanics WHERE id=$1`, id).
		Scan(&m.ID, &m.Name, &m.Email, &m.Phone,
			&m.Workshop, &m.Status, &m.Rating, &m.CreatedAt)
	if err != nil {
		return nil, errors.New("mechanic not found")
	}
	return &m, nil
}

// NameOf returns the display name for a mechanic id.
func (s *Service) NameOf(ctx context.Context, id string) (string, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return m.Name, nil
}

// UpdateLocation stores the mechanic's current position in Redis.
func (s *Service) UpdateLocation(ctx context.Context, mechanicID string, lat, lng float64) error {
	return s.redis.SetMechanicLocation(ctx, mechanicID, lat, lng)
}

// GoOffline removes the mechanic from the live location pool.
func (s *Service) GoOffline(ctx context.Context, mechanicID string) error {
	return s.redis.RemoveMechanicLocation(ctx, mechanicID)
}

// GetNearby returns mechanic IDs within radiusKm of the given point.
func (s *Service) GetNearby(ctx context.Context, lat, lng, radiusKm float64) ([]string, error) {
	return s.redis.GetNearbyMechanics(ctx, lat, lng, radiusKm, 10)
}

// SavePushToken registers a device push token for the profile.
func (s *Service) SavePushToken(ctx context.Context, mechanicID, token string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO push_tokens (profile_id, token) VALUES ($1,$2)
		 ON CONFLICT (profile_id, token) DO UPDATE SET updated_at=NOW()`,
		mechanicID, token)
	return err
}
