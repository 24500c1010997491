// Package feed delivers request change events to in-process subscribers.
// Consumers treat each event as the authoritative latest snapshot of the row
// and replace their state wholesale; events are never diffed or merged.
package feed

import (
	"sync"

	"roadside-service/internal/requests"
	"roadside-service/pkg/metrics"
)

// Event is one change-feed notification. Request is nil for DELETE events,
// which carry only the ids.
type Event struct {
	Type        string // events.ChangeInsert / ChangeUpdate / ChangeDelete
	RequestID   string
	RequesterID string
	Request     *requests.Request
}

// Subscription is a live, stoppable registration with the dispatcher.
type Subscription struct {
	d     *Dispatcher
	id    int
	ch    chan Event
	match func(Event) bool
}

// Events returns the channel events arrive on. It is closed by Stop.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Stop deregisters the subscription and closes its channel. Idempotent.
func (s *Subscription) Stop() {
	s.d.remove(s.id)
}

// subscription channel depth. When a slow consumer falls behind, the oldest
// buffered event is dropped so the latest snapshot always gets through.
const subBuffer = 32

// Dispatcher fans change events out to predicate-filtered subscriptions.
type Dispatcher struct {
	mu     sync.Mutex
	subs   map[int]*Subscription
	nextID int
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[int]*Subscription)}
}

// SubscribeOwner delivers events for rows owned by the given requester.
func (d *Dispatcher) SubscribeOwner(requesterID string) *Subscription {
	return d.subscribe(func(ev Event) bool { return ev.RequesterID == requesterID })
}

// SubscribeRequest delivers events for a single request id.
func (d *Dispatcher) SubscribeRequest(requestID string) *Subscription {
	return d.subscribe(func(ev Event) bool { return ev.RequestID == requestID })
}

// SubscribeAll delivers every event.
func (d *Dispatcher) SubscribeAll() *Subscription {
	return d.subscribe(func(Event) bool { return true })
}

func (d *Dispatcher) subscribe(match func(Event) bool) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	sub := &Subscription{
		d:     d,
		id:    d.nextID,
		ch:    make(chan Event, subBuffer),
		match: match,
	}
	d.subs[sub.id] = sub
	return sub
}

func (d *Dispatcher) remove(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sub, ok := d.subs[id]
	if !ok {
		return
	}
	delete(d.subs, id)
	close(sub.ch)
}

// Publish fans an event out to every matching subscription.
func (d *Dispatcher) Publish(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sub := range d.subs {
		if !sub.match(ev) {
			continue
		}
		for {
			select {
			case sub.ch <- ev:
			default:
				// Full buffer: shed the oldest event and retry.
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
		metrics.FeedEvents.Inc()
	}
}
