package requests

import (
	"context"
	"sort"
	"sync"
	"time"

	"roadside-service/pkg/roles"
)

// MemoryStore is an in-memory Store with the same conditional-write semantics
// as the Postgres implementation. It backs the package tests and the consumer
// packages' tests; it is not used in production wiring.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]*Request
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*Request)}
}

func (s *MemoryStore) Create(_ context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rows[r.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) LatestOpen(_ context.Context, requesterID string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Request
	for _, r := range s.rows {
		if r.RequesterID != requesterID || !IsOpen(r.Status) {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Request, 0, len(s.rows))
	for _, r := range s.rows {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Accept(_ context.Context, id, mechanicID, mechanicName string, at time.Time) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != StatusPending || r.MechanicID != nil {
		return nil, ErrConflict
	}
	r.Status = StatusInProgress
	r.MechanicID = &mechanicID
	r.MechanicName = &mechanicName
	r.AcceptedAt = &at
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) Complete(_ context.Context, id, mechanicID string, at time.Time) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != StatusInProgress || !r.AssignedTo(mechanicID) {
		return nil, ErrConflict
	}
	r.Status = StatusCompleted
	r.CompletedAt = &at
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) Cancel(_ context.Context, id, actorID string, role roles.Role) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}

	allowed := false
	switch role {
	case roles.Requester:
		allowed = r.RequesterID == actorID && r.Status == StatusPending
	case roles.Mechanic:
		allowed = r.Status == StatusPending ||
			((r.Status == StatusAccepted || r.Status == StatusInProgress) && r.AssignedTo(actorID))
	case roles.Admin:
		allowed = IsOpen(r.Status)
	}
	if !allowed {
		return nil, ErrConflict
	}

	r.Status = StatusCancelled
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) UpdateMechanicPosition(_ context.Context, id, mechanicID string, lat, lng float64) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !IsOpen(r.Status) || r.Status == StatusPending || !r.AssignedTo(mechanicID) {
		return nil, ErrConflict
	}
	r.MechanicLat = &lat
	r.MechanicLng = &lng
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}
