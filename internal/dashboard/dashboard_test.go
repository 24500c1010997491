package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadside-service/internal/events"
	"roadside-service/internal/feed"
	"roadside-service/internal/requests"
	"roadside-service/pkg/roles"
)

// storeService adapts a MemoryStore to the dashboard's Service interface,
// mirroring the signatures of the real request service.
type storeService struct {
	store *requests.MemoryStore
}

func (s *storeService) List(ctx context.Context) ([]*requests.Request, error) {
	return s.store.List(ctx)
}

func (s *storeService) Accept(ctx context.Context, mechanicID, mechanicName, requestID string) (*requests.Request, error) {
	return s.store.Accept(ctx, requestID, mechanicID, mechanicName, time.Now())
}

func (s *storeService) Complete(ctx context.Context, mechanicID, requestID string) (*requests.Request, error) {
	return s.store.Complete(ctx, requestID, mechanicID, time.Now())
}

func (s *storeService) Cancel(ctx context.Context, actorID string, role roles.Role, requestID string) (*requests.Request, bool, error) {
	r, err := s.store.Cancel(ctx, requestID, actorID, role)
	if err != nil {
		return nil, false, err
	}
	return r, role == roles.Mechanic && r.AcceptedAt != nil, nil
}

func seedRequest(t *testing.T, store *requests.MemoryStore, id, requester string, age time.Duration) *requests.Request {
	t.Helper()
	r := &requests.Request{
		ID:          id,
		RequesterID: requester,
		ServiceName: "tow",
		Category:    requests.CategoryEmergency,
		Status:      requests.StatusPending,
		CreatedAt:   time.Now().Add(-age),
	}
	require.NoError(t, store.Create(context.Background(), r))
	return r
}

func newDashboard(t *testing.T, mechanicID string) (*Dashboard, *requests.MemoryStore, *feed.Dispatcher) {
	t.Helper()
	store := requests.NewMemoryStore()
	d := feed.NewDispatcher()
	return New(&storeService{store: store}, d, mechanicID, "Ana"), store, d
}

func TestRefreshPartitionsPool(t *testing.T) {
	ctx := context.Background()
	dash, store, _ := newDashboard(t, "mech-a")

	seedRequest(t, store, "p1", "user-1", time.Minute)
	seedRequest(t, store, "p2", "user-2", 2*time.Minute)

	active := seedRequest(t, store, "a1", "user-3", 3*time.Minute)
	_, err := store.Accept(ctx, active.ID, "mech-b", "Bruno", time.Now())
	require.NoError(t, err)

	mine := seedRequest(t, store, "c1", "user-4", 4*time.Minute)
	_, err = store.Accept(ctx, mine.ID, "mech-a", "Ana", time.Now())
	require.NoError(t, err)
	_, err = store.Complete(ctx, mine.ID, "mech-a", time.Now())
	require.NoError(t, err)

	theirs := seedRequest(t, store, "c2", "user-5", 5*time.Minute)
	_, err = store.Accept(ctx, theirs.ID, "mech-b", "Bruno", time.Now())
	require.NoError(t, err)
	_, err = store.Complete(ctx, theirs.ID, "mech-b", time.Now())
	require.NoError(t, err)

	require.NoError(t, dash.Refresh(ctx))
	v := dash.View()

	assert.Len(t, v.Pending, 2)
	assert.Equal(t, "p1", v.Pending[0].ID, "newest first")
	assert.Len(t, v.InProgress, 1)
	// Completed is scoped to the acting mechanic, unlike the global views.
	require.Len(t, v.Completed, 1)
	assert.Equal(t, "c1", v.Completed[0].ID)
}

func TestAcceptConflictSurfacesAlreadyTaken(t *testing.T) {
	ctx := context.Background()
	dash, store, _ := newDashboard(t, "mech-a")
	seedRequest(t, store, "req-1", "user-1", time.Minute)

	_, err := store.Accept(ctx, "req-1", "mech-b", "Bruno", time.Now())
	require.NoError(t, err)

	_, err = dash.Accept(ctx, "req-1")
	assert.ErrorIs(t, err, requests.ErrConflict)

	// The losing mechanic's view resynced: the row is no longer pending.
	v := dash.View()
	assert.Empty(t, v.Pending)
	require.Len(t, v.InProgress, 1)
	assert.True(t, v.InProgress[0].AssignedTo("mech-b"))
}

func TestCanAct(t *testing.T) {
	dash, _, _ := newDashboard(t, "mech-a")
	mechA, mechB := "mech-a", "mech-b"

	assert.True(t, dash.CanAct(&requests.Request{Status: requests.StatusPending}))
	assert.True(t, dash.CanAct(&requests.Request{Status: requests.StatusInProgress, MechanicID: &mechA}))
	assert.False(t, dash.CanAct(&requests.Request{Status: requests.StatusInProgress, MechanicID: &mechB}))
}

func TestCancelActiveWorkWarns(t *testing.T) {
	ctx := context.Background()
	dash, store, _ := newDashboard(t, "mech-a")
	seedRequest(t, store, "req-1", "user-1", time.Minute)
	_, err := store.Accept(ctx, "req-1", "mech-a", "Ana", time.Now())
	require.NoError(t, err)

	r, warning, err := dash.Cancel(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, requests.StatusCancelled, r.Status)
	assert.True(t, warning)
}

// blockingService parks Accept calls until released, to expose the
// double-tap window.
type blockingService struct {
	storeService
	release chan struct{}
}

func (b *blockingService) Accept(ctx context.Context, mechanicID, mechanicName, requestID string) (*requests.Request, error) {
	<-b.release
	return b.storeService.Accept(ctx, mechanicID, mechanicName, requestID)
}

func TestDoubleTapAcceptIsSuppressed(t *testing.T) {
	ctx := context.Background()
	store := requests.NewMemoryStore()
	seedRequest(t, store, "req-1", "user-1", time.Minute)

	svc := &blockingService{storeService: storeService{store: store}, release: make(chan struct{})}
	dash := New(svc, feed.NewDispatcher(), "mech-a", "Ana")

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = dash.Accept(ctx, "req-1")
	}()

	// Second tap while the first is in flight.
	require.Eventually(t, func() bool {
		_, err := dash.Accept(ctx, "req-1")
		return err == ErrActionInFlight
	}, time.Second, time.Millisecond)

	close(svc.release)
	wg.Wait()
	require.NoError(t, firstErr)
}

func TestWatchAppliesEventsIncrementally(t *testing.T) {
	ctx := context.Background()
	dash, store, d := newDashboard(t, "mech-a")
	seed := seedRequest(t, store, "req-1", "user-1", time.Minute)

	require.NoError(t, dash.Watch(ctx))
	defer dash.Unwatch()

	require.Len(t, dash.View().Pending, 1)

	accepted := *seed
	accepted.Status = requests.StatusInProgress
	mech := "mech-b"
	accepted.MechanicID = &mech
	d.Publish(feed.Event{
		Type:        events.ChangeUpdate,
		RequestID:   seed.ID,
		RequesterID: seed.RequesterID,
		Request:     &accepted,
	})

	require.Eventually(t, func() bool {
		v := dash.View()
		return len(v.Pending) == 0 && len(v.InProgress) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWatchDeleteRemovesRow(t *testing.T) {
	ctx := context.Background()
	dash, store, d := newDashboard(t, "mech-a")
	seed := seedRequest(t, store, "req-1", "user-1", time.Minute)

	require.NoError(t, dash.Watch(ctx))
	defer dash.Unwatch()

	d.Publish(feed.Event{
		Type:        events.ChangeDelete,
		RequestID:   seed.ID,
		RequesterID: seed.RequesterID,
	})

	require.Eventually(t, func() bool {
		return len(dash.View().Pending) == 0
	}, time.Second, 5*time.Millisecond)
}
