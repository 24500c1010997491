package requests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadside-service/pkg/roles"
)

func newPendingRequest(t *testing.T, s *MemoryStore, id, requesterID string) *Request {
	t.Helper()
	lat, lng := 4.7110, -74.0721
	r := &Request{
		ID:             id,
		RequesterID:    requesterID,
		RequesterEmail: requesterID + "@example.com",
		RequesterLat:   &lat,
		RequesterLng:   &lng,
		ServiceName:    "flat tire",
		Category:       CategoryEmergency,
		Status:         StatusPending,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, s.Create(context.Background(), r))
	return r
}

func TestAcceptAssignsMechanic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	newPendingRequest(t, s, "req-1", "user-1")

	r, err := s.Accept(ctx, "req-1", "mech-a", "Ana", time.Now())
	require.NoError(t, err)

	assert.Equal(t, StatusInProgress, r.Status)
	require.NotNil(t, r.MechanicID)
	assert.Equal(t, "mech-a", *r.MechanicID)
	require.NotNil(t, r.MechanicName)
	assert.Equal(t, "Ana", *r.MechanicName)
	assert.NotNil(t, r.AcceptedAt)
	assert.Nil(t, r.CompletedAt)
}

func TestSecondAcceptIsRejectedAndRowUnchanged(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	newPendingRequest(t, s, "req-1", "user-1")

	first, err := s.Accept(ctx, "req-1", "mech-a", "Ana", time.Now())
	require.NoError(t, err)

	_, err = s.Accept(ctx, "req-1", "mech-b", "Bruno", time.Now())
	assert.ErrorIs(t, err, ErrConflict)

	cur, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, *first.MechanicID, *cur.MechanicID)
	assert.Equal(t, StatusInProgress, cur.Status)
}

func TestConcurrentAcceptsExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	newPendingRequest(t, s, "req-1", "user-1")

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Accept(ctx, "req-1", "mech-"+string(rune('a'+i)), "M", time.Now())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)

	cur, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.NotNil(t, cur.MechanicID)
}

func TestCompleteOnlyByAssignedMechanic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	newPendingRequest(t, s, "req-1", "user-1")
	_, err := s.Accept(ctx, "req-1", "mech-a", "Ana", time.Now())
	require.NoError(t, err)

	_, err = s.Complete(ctx, "req-1", "mech-b", time.Now())
	assert.ErrorIs(t, err, ErrConflict)

	r, err := s.Complete(ctx, "req-1", "mech-a", time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.NotNil(t, r.CompletedAt)
}

func TestTerminalRowsRejectFurtherTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	newPendingRequest(t, s, "req-1", "user-1")
	_, err := s.Accept(ctx, "req-1", "mech-a", "Ana", time.Now())
	require.NoError(t, err)
	_, err = s.Complete(ctx, "req-1", "mech-a", time.Now())
	require.NoError(t, err)

	_, err = s.Accept(ctx, "req-1", "mech-b", "Bruno", time.Now())
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.Cancel(ctx, "req-1", "mech-a", roles.Mechanic)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.Complete(ctx, "req-1", "mech-a", time.Now())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCancelRules(t *testing.T) {
	ctx := context.Background()

	t.Run("requester cancels own pending", func(t *testing.T) {
		s := NewMemoryStore()
		newPendingRequest(t, s, "req-1", "user-1")
		r, err := s.Cancel(ctx, "req-1", "user-1", roles.Requester)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, r.Status)
	})

	t.Run("requester cannot cancel someone else's request", func(t *testing.T) {
		s := NewMemoryStore()
		newPendingRequest(t, s, "req-1", "user-1")
		_, err := s.Cancel(ctx, "req-1", "user-2", roles.Requester)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unassigned mechanic cannot cancel active work", func(t *testing.T) {
		s := NewMemoryStore()
		newPendingRequest(t, s, "req-1", "user-1")
		_, err := s.Accept(ctx, "req-1", "mech-a", "Ana", time.Now())
		require.NoError(t, err)
		_, err = s.Cancel(ctx, "req-1", "mech-b", roles.Mechanic)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("assigned mechanic cancels active work", func(t *testing.T) {
		s := NewMemoryStore()
		newPendingRequest(t, s, "req-1", "user-1")
		_, err := s.Accept(ctx, "req-1", "mech-a", "Ana", time.Now())
		require.NoError(t, err)
		r, err := s.Cancel(ctx, "req-1", "mech-a", roles.Mechanic)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, r.Status)
	})
}

func TestLatestOpenPicksMostRecentOpenRow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	old := newPendingRequest(t, s, "req-old", "user-1")
	old.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.Create(ctx, old))
	_, err := s.Cancel(ctx, "req-old", "user-1", roles.Requester)
	require.NoError(t, err)

	newPendingRequest(t, s, "req-new", "user-1")

	r, err := s.LatestOpen(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "req-new", r.ID)

	none, err := s.LatestOpen(ctx, "user-2")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdateMechanicPositionRequiresAssignment(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	newPendingRequest(t, s, "req-1", "user-1")

	_, err := s.UpdateMechanicPosition(ctx, "req-1", "mech-a", 4.70, -74.08)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.Accept(ctx, "req-1", "mech-a", "Ana", time.Now())
	require.NoError(t, err)

	r, err := s.UpdateMechanicPosition(ctx, "req-1", "mech-a", 4.70, -74.08)
	require.NoError(t, err)
	require.NotNil(t, r.MechanicLat)
	assert.InDelta(t, 4.70, *r.MechanicLat, 1e-9)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i, id := range []string{"req-a", "req-b", "req-c"} {
		r := newPendingRequest(t, s, id, "user-1")
		r.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Create(ctx, r))
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "req-c", list[0].ID)
	assert.Equal(t, "req-a", list[2].ID)
}
