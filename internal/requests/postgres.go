package requests

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roadside-service/pkg/roles"
)

const requestColumns = `id,requester_id,requester_email,requester_lat,requester_lng,
	service_name,description,category,icon_ref,
	mechanic_id,mechanic_name,mechanic_lat,mechanic_lng,
	status,created_at,accepted_at,completed_at`

// PostgresStore is the pgx-backed Store implementation.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *Request) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO service_requests
		 (id,requester_id,requester_email,requester_lat,requester_lng,
		  service_name,description,category,icon_ref,status,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.RequesterID, r.RequesterEmail, r.RequesterLat, r.RequesterLng,
		r.ServiceName, r.Description, r.Category, r.IconRef, r.Status, r.CreatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE id=$1`, id)
	return scanRequest(row)
}

func (s *PostgresStore) LatestOpen(ctx context.Context, requesterID string) (*Request, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM service_requests
		 WHERE requester_id=$1 AND status IN ($2,$3,$4)
		 ORDER BY created_at DESC LIMIT 1`,
		requesterID, StatusPending, StatusAccepted, StatusInProgress)
	r, err := scanRequest(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) List(ctx context.Context) ([]*Request, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+requestColumns+` FROM service_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Accept is the two-mechanics race arbiter: the WHERE clause carries the
// pending precondition, so only the first writer's update sticks.
func (s *PostgresStore) Accept(ctx context.Context, id, mechanicID, mechanicName string, at time.Time) (*Request, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE service_requests
		 SET status=$1, mechanic_id=$2, mechanic_name=$3, accepted_at=$4
		 WHERE id=$5 AND status=$6 AND mechanic_id IS NULL`,
		StatusInProgress, mechanicID, mechanicName, at, id, StatusPending)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, s.conditionError(ctx, id)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Complete(ctx context.Context, id, mechanicID string, at time.Time) (*Request, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE service_requests
		 SET status=$1, completed_at=$2
		 WHERE id=$3 AND status=$4 AND mechanic_id=$5`,
		StatusCompleted, at, id, StatusInProgress, mechanicID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, s.conditionError(ctx, id)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Cancel(ctx context.Context, id, actorID string, role roles.Role) (*Request, error) {
	var tagCmd string
	var args []any
	switch role {
	case roles.Requester:
		tagCmd = `UPDATE service_requests SET status=$1
			 WHERE id=$2 AND requester_id=$3 AND status=$4`
		args = []any{StatusCancelled, id, actorID, StatusPending}
	case roles.Mechanic:
		tagCmd = `UPDATE service_requests SET status=$1
			 WHERE id=$2 AND (status=$3 OR (status IN ($4,$5) AND mechanic_id=$6))`
		args = []any{StatusCancelled, id, StatusPending, StatusAccepted, StatusInProgress, actorID}
	case roles.Admin:
		tagCmd = `UPDATE service_requests SET status=$1
			 WHERE id=$2 AND status IN ($3,$4,$5)`
		args = []any{StatusCancelled, id, StatusPending, StatusAccepted, StatusInProgress}
	default:
		return nil, ErrForbidden
	}

	tag, err := s.db.Exec(ctx, tagCmd, args...)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, s.conditionError(ctx, id)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) UpdateMechanicPosition(ctx context.Context, id, mechanicID string, lat, lng float64) (*Request, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE service_requests SET mechanic_lat=$1, mechanic_lng=$2
		 WHERE id=$3 AND status IN ($4,$5) AND mechanic_id=$6`,
		lat, lng, id, StatusAccepted, StatusInProgress, mechanicID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, s.conditionError(ctx, id)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM service_requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// conditionError distinguishes a missing row from a failed precondition after
// a zero-row update.
func (s *PostgresStore) conditionError(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.RequesterID, &r.RequesterEmail, &r.RequesterLat, &r.RequesterLng,
		&r.ServiceName, &r.Description, &r.Category, &r.IconRef,
		&r.MechanicID, &r.MechanicName, &r.MechanicLat, &r.MechanicLng,
		&r.Status, &r.CreatedAt, &r.AcceptedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
