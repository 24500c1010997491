package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"roadside-service/internal/events"
	"roadside-service/pkg/kafka"
	"roadside-service/pkg/metrics"
	rredis "roadside-service/pkg/redis"
	"roadside-service/pkg/roles"
)

// Service contains request business logic: lifecycle transitions through the
// store plus the change-event and cache side channels.
type Service struct {
	store Store
	kafka *kafka.Client
	cache *rredis.Client
}

// NewService creates a request service.
func NewService(store Store, k *kafka.Client, cache *rredis.Client) *Service {
	return &Service{store: store, kafka: k, cache: cache}
}

// Create opens a new pending request for the requester and announces it.
func (s *Service) Create(ctx context.Context, requesterID, requesterEmail string, in CreateInput) (*Request, error) {
	now := time.Now()
	r := &Request{
		ID:             uuid.New().String(),
		RequesterID:    requesterID,
		RequesterEmail: requesterEmail,
		RequesterLat:   in.Lat,
		RequesterLng:   in.Lng,
		ServiceName:    in.ServiceName,
		Description:    in.Description,
		Category:       in.Category,
		IconRef:        in.IconRef,
		Status:         StatusPending,
		CreatedAt:      now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	metrics.RequestsCreated.Inc()

	go func() {
		ev := events.RequestCreatedEvent{
			RequestID:   r.ID,
			RequesterID: r.RequesterID,
			ServiceName: r.ServiceName,
			Category:    r.Category,
			CreatedAt:   now.Format(time.RFC3339),
		}
		if r.RequesterLat != nil && r.RequesterLng != nil {
			ev.Location = &events.LatLng{Lat: *r.RequesterLat, Lng: *r.RequesterLng}
		}
		if err := s.kafka.Publish(context.Background(), kafka.TopicRequestCreated, r.ID, ev); err != nil {
			log.Printf("[requests] failed to publish request.created: %v", err)
		}
	}()

	s.publishChange(events.ChangeInsert, r)
	s.cacheSnapshot(r)
	return r, nil
}

// Accept assigns the request to a mechanic. Exactly one of two concurrent
// accepts succeeds; the loser gets ErrConflict ("already taken").
func (s *Service) Accept(ctx context.Context, mechanicID, mechanicName, requestID string) (*Request, error) {
	r, err := s.store.Accept(ctx, requestID, mechanicID, mechanicName, time.Now())
	if err != nil {
		metrics.TransitionConflicts.Inc()
		return nil, err
	}
	metrics.Transitions.WithLabelValues(StatusInProgress).Inc()
	s.publishChange(events.ChangeUpdate, r)
	s.cacheSnapshot(r)
	return r, nil
}

// Complete finishes active work. Only the assigned mechanic may call it.
func (s *Service) Complete(ctx context.Context, mechanicID, requestID string) (*Request, error) {
	r, err := s.store.Complete(ctx, requestID, mechanicID, time.Now())
	if err != nil {
		metrics.TransitionConflicts.Inc()
		return nil, err
	}
	metrics.Transitions.WithLabelValues(StatusCompleted).Inc()

	go func() {
		var durSec int64
		if r.AcceptedAt != nil && r.CompletedAt != nil {
			durSec = int64(r.CompletedAt.Sub(*r.AcceptedAt).Seconds())
		}
		ev := events.RequestCompletedEvent{
			RequestID:       r.ID,
			MechanicID:      mechanicID,
			RequesterID:     r.RequesterID,
			CompletedAt:     r.CompletedAt.Format(time.RFC3339),
			DurationSeconds: durSec,
		}
		if err := s.kafka.Publish(context.Background(), kafka.TopicRequestCompleted, r.ID, ev); err != nil {
			log.Printf("[requests] failed to publish request.completed: %v", err)
		}
	}()

	s.publishChange(events.ChangeUpdate, r)
	s.dropSnapshot(r.ID)
	return r, nil
}

// Cancel terminates an open request. The returned flag warns that an assigned
// mechanic walked away from accepted work, which affects their reputation.
func (s *Service) Cancel(ctx context.Context, actorID string, role roles.Role, requestID string) (*Request, bool, error) {
	r, err := s.store.Cancel(ctx, requestID, actorID, role)
	if err != nil {
		metrics.TransitionConflicts.Inc()
		return nil, false, err
	}
	metrics.Transitions.WithLabelValues(StatusCancelled).Inc()
	warning := role == roles.Mechanic && r.AcceptedAt != nil

	s.publishChange(events.ChangeUpdate, r)
	s.dropSnapshot(r.ID)
	return r, warning, nil
}

// UpdateMechanicPosition refreshes the live coordinates while service is active.
func (s *Service) UpdateMechanicPosition(ctx context.Context, mechanicID, requestID string, lat, lng float64) (*Request, error) {
	r, err := s.store.UpdateMechanicPosition(ctx, requestID, mechanicID, lat, lng)
	if err != nil {
		return nil, err
	}
	s.publishChange(events.ChangeUpdate, r)
	s.cacheSnapshot(r)
	return r, nil
}

// Get fetches a request by id.
func (s *Service) Get(ctx context.Context, id string) (*Request, error) {
	return s.store.Get(ctx, id)
}

// LatestOpen returns the requester's single open request, nil if none.
func (s *Service) LatestOpen(ctx context.Context, requesterID string) (*Request, error) {
	return s.store.LatestOpen(ctx, requesterID)
}

// List returns all requests, newest first.
func (s *Service) List(ctx context.Context) ([]*Request, error) {
	return s.store.List(ctx)
}

// Delete removes a request outright and fans out a DELETE change event.
// Only the account-deletion path uses it.
func (s *Service) Delete(ctx context.Context, id string) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	go func() {
		ev := events.RequestChangedEvent{
			Type:        events.ChangeDelete,
			RequestID:   r.ID,
			RequesterID: r.RequesterID,
		}
		if err := s.kafka.Publish(context.Background(), kafka.TopicRequestChanged, r.ID, ev); err != nil {
			log.Printf("[requests] failed to publish request.changed: %v", err)
		}
	}()
	s.dropSnapshot(id)
	return nil
}

func (s *Service) publishChange(changeType string, r *Request) {
	go func() {
		raw, err := json.Marshal(r)
		if err != nil {
			log.Printf("[requests] marshal change event: %v", err)
			return
		}
		ev := events.RequestChangedEvent{
			Type:        changeType,
			RequestID:   r.ID,
			RequesterID: r.RequesterID,
			Request:     raw,
		}
		if err := s.kafka.Publish(context.Background(), kafka.TopicRequestChanged, r.ID, ev); err != nil {
			log.Printf("[requests] failed to publish request.changed: %v", err)
		}
	}()
}

func (s *Service) cacheSnapshot(r *Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		data := map[string]string{
			"status":       r.Status,
			"requester_id": r.RequesterID,
			"service_name": r.ServiceName,
			"category":     r.Category,
		}
		if r.MechanicID != nil {
			data["mechanic_id"] = *r.MechanicID
		}
		if err := s.cache.CacheRequest(ctx, r.ID, data); err != nil {
			log.Printf("[requests] cache snapshot: %v", err)
		}
	}()
}

func (s *Service) dropSnapshot(id string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.DropCachedRequest(ctx, id); err != nil {
			log.Printf("[requests] drop snapshot: %v", err)
		}
	}()
}
