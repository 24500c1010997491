// Package dashboard is the mechanic-side view of the global request pool.
package dashboard

import (
	"context"
	"errors"
	"sort"
	"sync"

	"roadside-service/internal/events"
	"roadside-service/internal/feed"
	"roadside-service/internal/requests"
	"roadside-service/pkg/roles"
)

// ErrActionInFlight guards against duplicate concurrent submissions of the
// same action (double-tap).
var ErrActionInFlight = errors.New("action already in flight for this request")

// Service is what the dashboard needs from the request service.
type Service interface {
	List(ctx context.Context) ([]*requests.Request, error)
	Accept(ctx context.Context, mechanicID, mechanicName, requestID string) (*requests.Request, error)
	Complete(ctx context.Context, mechanicID, requestID string) (*requests.Request, error)
	Cancel(ctx context.Context, actorID string, role roles.Role, requestID string) (*requests.Request, bool, error)
}

// Feed hands out unfiltered change subscriptions for incremental updates.
type Feed interface {
	SubscribeAll() *feed.Subscription
}

// View partitions the pool the way the mechanic screen renders it. Pending and
// InProgress are global; Completed is scoped to the acting mechanic.
type View struct {
	Pending    []*requests.Request
	InProgress []*requests.Request
	Completed  []*requests.Request
}

// Partition buckets a newest-first request list into the three views.
func Partition(list []*requests.Request, mechanicID string) View {
	var v View
	for _, r := range list {
		switch r.Status {
		case requests.StatusPending:
			v.Pending = append(v.Pending, r)
		case requests.StatusInProgress:
			v.InProgress = append(v.InProgress, r)
		case requests.StatusCompleted:
			if r.AssignedTo(mechanicID) {
				v.Completed = append(v.Completed, r)
			}
		}
	}
	return v
}

// Dashboard aggregates the pool for one mechanic and issues transitions.
type Dashboard struct {
	svc          Service
	feed         Feed
	mechanicID   string
	mechanicName string

	mu       sync.Mutex
	view     View
	inflight map[string]bool
	sub      *feed.Subscription
	done     chan struct{}
}

// New creates a dashboard for the given mechanic.
func New(svc Service, f Feed, mechanicID, mechanicName string) *Dashboard {
	return &Dashboard{
		svc:          svc,
		feed:         f,
		mechanicID:   mechanicID,
		mechanicName: mechanicName,
		inflight:     make(map[string]bool),
	}
}

// Refresh reloads the full pool and repartitions it.
func (d *Dashboard) Refresh(ctx context.Context) error {
	list, err := d.svc.List(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })

	d.mu.Lock()
	d.view = Partition(list, d.mechanicID)
	d.mu.Unlock()
	return nil
}

// View returns a copy of the current partitions.
func (d *Dashboard) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return View{
		Pending:    append([]*requests.Request(nil), d.view.Pending...),
		InProgress: append([]*requests.Request(nil), d.view.InProgress...),
		Completed:  append([]*requests.Request(nil), d.view.Completed...),
	}
}

// CanAct reports whether this mechanic may act on the request: pending work is
// up for grabs, active work only by its assigned mechanic.
func (d *Dashboard) CanAct(r *requests.Request) bool {
	if r.Status == requests.StatusPending {
		return true
	}
	return r.AssignedTo(d.mechanicID)
}

// Accept claims a pending request. A conflict means another mechanic got
// there first; the view is refreshed either way so stale rows disappear.
func (d *Dashboard) Accept(ctx context.Context, requestID string) (*requests.Request, error) {
	if !d.begin(requestID) {
		return nil, ErrActionInFlight
	}
	defer d.end(requestID)

	r, err := d.svc.Accept(ctx, d.mechanicID, d.mechanicName, requestID)
	if refreshErr := d.Refresh(ctx); refreshErr != nil && err == nil {
		err = refreshErr
	}
	return r, err
}

// Complete finishes this mechanic's active work on the request.
func (d *Dashboard) Complete(ctx context.Context, requestID string) (*requests.Request, error) {
	if !d.begin(requestID) {
		return nil, ErrActionInFlight
	}
	defer d.end(requestID)

	r, err := d.svc.Complete(ctx, d.mechanicID, requestID)
	if refreshErr := d.Refresh(ctx); refreshErr != nil && err == nil {
		err = refreshErr
	}
	return r, err
}

// Cancel terminates a request. The warning flag is true when the mechanic
// cancelled work they had already accepted.
func (d *Dashboard) Cancel(ctx context.Context, requestID string) (*requests.Request, bool, error) {
	if !d.begin(requestID) {
		return nil, false, ErrActionInFlight
	}
	defer d.end(requestID)

	r, warning, err := d.svc.Cancel(ctx, d.mechanicID, roles.Mechanic, requestID)
	if refreshErr := d.Refresh(ctx); refreshErr != nil && err == nil {
		err = refreshErr
	}
	return r, warning, err
}

// Watch applies change events incrementally instead of refetching after every
// mutation, the same subscribe-and-replace pattern the requester side uses.
func (d *Dashboard) Watch(ctx context.Context) error {
	if err := d.Refresh(ctx); err != nil {
		return err
	}

	sub := d.feed.SubscribeAll()
	done := make(chan struct{})

	d.mu.Lock()
	if d.sub != nil {
		d.mu.Unlock()
		sub.Stop()
		return errors.New("dashboard already watching")
	}
	d.sub = sub
	d.done = done
	d.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range sub.Events() {
			d.applyEvent(ev)
		}
	}()
	return nil
}

// Unwatch releases the change subscription. Idempotent.
func (d *Dashboard) Unwatch() {
	d.mu.Lock()
	sub, done := d.sub, d.done
	d.sub, d.done = nil, nil
	d.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Stop()
	<-done
}

// applyEvent removes the row from every partition, then re-inserts it where
// its latest snapshot belongs. Events replace state; nothing is merged.
func (d *Dashboard) applyEvent(ev feed.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.view.Pending = removeByID(d.view.Pending, ev.RequestID)
	d.view.InProgress = removeByID(d.view.InProgress, ev.RequestID)
	d.view.Completed = removeByID(d.view.Completed, ev.RequestID)

	if ev.Type == events.ChangeDelete || ev.Request == nil {
		return
	}
	r := ev.Request
	switch r.Status {
	case requests.StatusPending:
		d.view.Pending = insertNewestFirst(d.view.Pending, r)
	case requests.StatusInProgress:
		d.view.InProgress = insertNewestFirst(d.view.InProgress, r)
	case requests.StatusCompleted:
		if r.AssignedTo(d.mechanicID) {
			d.view.Completed = insertNewestFirst(d.view.Completed, r)
		}
	}
}

func (d *Dashboard) begin(requestID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight[requestID] {
		return false
	}
	d.inflight[requestID] = true
	return true
}

func (d *Dashboard) end(requestID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, requestID)
}

func removeByID(list []*requests.Request, id string) []*requests.Request {
	for i, r := range list {
		if r.ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func insertNewestFirst(list []*requests.Request, r *requests.Request) []*requests.Request {
	for i, cur := range list {
		if r.CreatedAt.After(cur.CreatedAt) {
			list = append(list, nil)
			copy(list[i+1:], list[i:])
			list[i] = r
			return list
		}
	}
	return append(list, r)
}
