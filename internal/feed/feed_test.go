package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadside-service/internal/events"
	"roadside-service/internal/requests"
)

func event(requestID, requesterID string) Event {
	return Event{
		Type:        events.ChangeUpdate,
		RequestID:   requestID,
		RequesterID: requesterID,
		Request:     &requests.Request{ID: requestID, RequesterID: requesterID},
	}
}

func TestSubscribeOwnerFiltersByRequester(t *testing.T) {
	d := NewDispatcher()
	sub := d.SubscribeOwner("user-1")
	defer sub.Stop()

	d.Publish(event("req-1", "user-1"))
	d.Publish(event("req-2", "user-2"))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "req-1", ev.RequestID)
	case <-time.After(time.Second):
		t.Fatal("expected an event for user-1")
	}

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %q for another owner", ev.RequestID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeRequestFiltersByID(t *testing.T) {
	d := NewDispatcher()
	sub := d.SubscribeRequest("req-1")
	defer sub.Stop()

	d.Publish(event("req-2", "user-1"))
	d.Publish(event("req-1", "user-1"))

	ev := <-sub.Events()
	assert.Equal(t, "req-1", ev.RequestID)
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	d := NewDispatcher()
	sub := d.SubscribeAll()
	defer sub.Stop()

	d.Publish(event("req-1", "user-1"))
	d.Publish(event("req-2", "user-2"))

	assert.Equal(t, "req-1", (<-sub.Events()).RequestID)
	assert.Equal(t, "req-2", (<-sub.Events()).RequestID)
}

func TestStopClosesChannelAndDeregisters(t *testing.T) {
	d := NewDispatcher()
	sub := d.SubscribeAll()

	sub.Stop()
	sub.Stop() // idempotent

	_, open := <-sub.Events()
	assert.False(t, open)

	// Publishing after Stop must not panic.
	d.Publish(event("req-1", "user-1"))
}

func TestSlowConsumerKeepsLatestEvent(t *testing.T) {
	d := NewDispatcher()
	sub := d.SubscribeAll()
	defer sub.Stop()

	// Overflow the buffer without draining.
	for i := 0; i < subBuffer*2; i++ {
		d.Publish(event("req-overflow", "user-1"))
	}
	last := event("req-latest", "user-1")
	d.Publish(last)

	var got Event
	for {
		select {
		case ev := <-sub.Events():
			got = ev
			continue
		default:
		}
		break
	}
	require.Equal(t, "req-latest", got.RequestID, "latest snapshot must survive shedding")
}
