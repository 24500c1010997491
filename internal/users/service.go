package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"roadside-service/pkg/jwt"
	"roadside-service/pkg/roles"
)

// Service contains requester-account business logic.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a user service backed by the given pool.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// Register creates a new requester account and returns a JWT.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var exists bool
	_ = s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)", req.Email).Scan(&exists)
	if exists {
		return nil, errors.New("email already exists")
	}
	_ = s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE phone=$1)", req.Phone).Scan(&exists)
	if exists {
		return nil, errors.New("phone already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.db.Exec(ctx,
		`INSERT INTO users (id,name,email,phone,password_hash) VALUES ($1,$2,$3,$4,$5)`,
		id, req.Name, req.Email, req.Phone, string(hash))
	if err != nil {
		return nil, err
	}

	token, err := jwt.Generate(id, req.Email, roles.Requester)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  &User{ID: id, Name: req.Name, Email: req.Email, Phone: req.Phone},
	}, nil
}

// Login authenticates a requester and returns a JWT.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var u User
	var hash string
	err := s.db.QueryRow(ctx,
		`SELECT id,name,email,phone,password_hash,created_at FROM users WHERE email=$1`,
		req.Email).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &hash, &u.CreatedAt)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return nil, errors.New("invalid credentials")
	}

	token, err := jwt.Generate(u.ID, u.Email, roles.Requester)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: &u}, nil
}

// GetByID fetches a single user by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRow(ctx,
		`SELECT id,name,email,phone,created_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.CreatedAt)
	if err != nil {
		return nil, errors.New("user not found")
	}
	return &u, nil
}

// SavePushToken registers a device push token for the profile.
func (s *Service) SavePushToken(ctx context.Context, userID, token string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO push_tokens (profile_id, token) VALUES ($1,$2)
		 ON CONFLICT (profile_id, token) DO UPDATE SET updated_at=NOW()`,
		userID, token)
	return err
}
