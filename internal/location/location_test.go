package location

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadside-service/internal/geo"
)

var bogota = geo.Point{Lat: 4.7110, Lng: -74.0721}

func TestResolveUsesProviderWhenAvailable(t *testing.T) {
	p := Static{Point: geo.Point{Lat: 1, Lng: 2}}
	got := Resolve(context.Background(), p, bogota)
	assert.Equal(t, p.Point, got)
}

func TestResolveFallsBackWhenUnavailable(t *testing.T) {
	got := Resolve(context.Background(), Unavailable{}, bogota)
	assert.Equal(t, bogota, got)
}

func TestWatcherDeliversPositions(t *testing.T) {
	var mu sync.Mutex
	var got []geo.Point

	var w Watcher
	err := w.Start(context.Background(), Static{Point: bogota}, bogota, 10*time.Millisecond, func(pt geo.Point) {
		mu.Lock()
		got = append(got, pt)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer w.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestWatcherAllowsOnlyOneActiveWatch(t *testing.T) {
	var w Watcher
	sink := func(geo.Point) {}

	require.NoError(t, w.Start(context.Background(), Static{Point: bogota}, bogota, time.Hour, sink))
	assert.True(t, w.Active())

	err := w.Start(context.Background(), Static{Point: bogota}, bogota, time.Hour, sink)
	assert.ErrorIs(t, err, ErrAlreadyWatching)

	w.Stop()
	assert.False(t, w.Active())

	// A stopped watcher can start again.
	require.NoError(t, w.Start(context.Background(), Static{Point: bogota}, bogota, time.Hour, sink))
	w.Stop()
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	var w Watcher
	require.NoError(t, w.Start(context.Background(), Unavailable{}, bogota, time.Hour, func(geo.Point) {}))
	w.Stop()
	w.Stop()
}
