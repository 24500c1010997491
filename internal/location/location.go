// Package location is the device-location boundary: a permission-gated
// provider with a fixed fallback coordinate, and an explicit watch handle.
package location

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"roadside-service/internal/geo"
)

// ErrUnavailable is returned by providers when permission is denied or the
// position cannot be determined.
var ErrUnavailable = errors.New("location unavailable")

// ErrAlreadyWatching is returned by Watcher.Start when a watch is active.
var ErrAlreadyWatching = errors.New("location watch already active")

// Provider yields the current device position.
type Provider interface {
	Current(ctx context.Context) (geo.Point, error)
}

// Static is a Provider pinned to a fixed point. Useful for simulated devices
// and tests.
type Static struct {
	Point geo.Point
}

func (s Static) Current(context.Context) (geo.Point, error) {
	return s.Point, nil
}

// Unavailable is a Provider that always fails, modelling denied permission.
type Unavailable struct{}

func (Unavailable) Current(context.Context) (geo.Point, error) {
	return geo.Point{}, ErrUnavailable
}

// Resolve returns the provider's position, or the fallback when the provider
// fails. Location failures never fail the flow.
func Resolve(ctx context.Context, p Provider, fallback geo.Point) geo.Point {
	pt, err := p.Current(ctx)
	if err != nil {
		log.Printf("[location] provider unavailable, using fallback: %v", err)
		return fallback
	}
	return pt
}

// Watcher owns at most one active location watch. The handle is explicit:
// whoever starts the watch holds the Watcher and stops it deterministically.
type Watcher struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start begins polling the provider every interval and passing each resolved
// position to sink. It fails if a watch is already active.
func (w *Watcher) Start(ctx context.Context, p Provider, fallback geo.Point, interval time.Duration, sink func(geo.Point)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return ErrAlreadyWatching
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sink(Resolve(ctx, p, fallback))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sink(Resolve(ctx, p, fallback))
			}
		}
	}()
	return nil
}

// Active reports whether a watch is currently running.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Stop ends the active watch and waits for its loop to exit. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
