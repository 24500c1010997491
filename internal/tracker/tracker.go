// Package tracker gives a requester a live view of their single open request.
package tracker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"roadside-service/internal/events"
	"roadside-service/internal/feed"
	"roadside-service/internal/requests"
)

// Store is the read side the tracker needs from the request store.
type Store interface {
	LatestOpen(ctx context.Context, requesterID string) (*requests.Request, error)
}

// Feed hands out owner-filtered change subscriptions.
type Feed interface {
	SubscribeOwner(requesterID string) *feed.Subscription
}

const (
	fetchAttempts = 3
	fetchBackoff  = 500 * time.Millisecond
)

// Tracker holds the latest snapshot of one requester's open request and keeps
// it current via a change subscription. At most one subscription is live at a
// time; Start with a new identity (or Stop) releases the previous one.
type Tracker struct {
	store Store
	feed  Feed

	mu     sync.Mutex
	userID string
	cur    *requests.Request
	sub    *feed.Subscription
	done   chan struct{}
}

// New creates a tracker. Call Start to bind it to a requester.
func New(store Store, f Feed) *Tracker {
	return &Tracker{store: store, feed: f}
}

// Start loads the requester's latest open request and subscribes to changes.
// Any previous identity's subscription is stopped first.
func (t *Tracker) Start(ctx context.Context, requesterID string) error {
	t.Stop()

	var cur *requests.Request
	var err error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		cur, err = t.store.LatestOpen(ctx, requesterID)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[tracker] initial fetch failed (attempt %d/%d): %v", attempt, fetchAttempts, err)
		time.Sleep(fetchBackoff)
	}
	if err != nil {
		return fmt.Errorf("load open request: %w", err)
	}

	sub := t.feed.SubscribeOwner(requesterID)
	done := make(chan struct{})

	t.mu.Lock()
	t.userID = requesterID
	t.cur = cur
	t.sub = sub
	t.done = done
	t.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range sub.Events() {
			t.apply(ev)
		}
	}()
	return nil
}

// apply replaces local state with the event snapshot. Deletes carry no row
// payload; the request is simply gone.
func (t *Tracker) apply(ev feed.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.Type == events.ChangeDelete {
		if t.cur != nil && t.cur.ID == ev.RequestID {
			t.cur = nil
		}
		return
	}
	if ev.Request == nil {
		return
	}
	t.cur = ev.Request
}

// Current returns the latest snapshot, terminal rows included, or nil when
// there is no request at all.
func (t *Tracker) Current() *requests.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil {
		return nil
	}
	cp := *t.cur
	return &cp
}

// Open returns the request only while it is still open; nil once it reaches a
// terminal state.
func (t *Tracker) Open() *requests.Request {
	r := t.Current()
	if r == nil || !requests.IsOpen(r.Status) {
		return nil
	}
	return r
}

// Step returns the requester-projection progress step for the current request.
func (t *Tracker) Step() int {
	r := t.Current()
	if r == nil {
		return 0
	}
	return requests.RequesterStep(r.Status)
}

// Stop releases the live subscription, if any, and waits for the event loop
// to drain. Idempotent.
func (t *Tracker) Stop() {
	t.mu.Lock()
	sub, done := t.sub, t.done
	t.sub, t.done = nil, nil
	t.userID = ""
	t.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Stop()
	<-done
}
