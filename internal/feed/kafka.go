package feed

import (
	"context"
	"encoding/json"
	"log"

	"roadside-service/internal/events"
	"roadside-service/internal/requests"
	"roadside-service/pkg/kafka"
)

// RunKafkaSource consumes request.changed and pumps the dispatcher. The
// consumer runs until ctx is cancelled.
func RunKafkaSource(ctx context.Context, kc *kafka.Client, groupID string, d *Dispatcher) {
	kc.Subscribe(ctx, kafka.TopicRequestChanged, groupID, func(data []byte) error {
		var raw events.RequestChangedEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}

		ev := Event{
			Type:        raw.Type,
			RequestID:   raw.RequestID,
			RequesterID: raw.RequesterID,
		}
		if raw.Type != events.ChangeDelete && len(raw.Request) > 0 {
			var r requests.Request
			if err := json.Unmarshal(raw.Request, &r); err != nil {
				return err
			}
			ev.Request = &r
		}

		log.Printf("[feed] %s request=%s", ev.Type, ev.RequestID)
		d.Publish(ev)
		return nil
	})
}
