package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"roadside-service/internal/events"
	"roadside-service/internal/geo"
	"roadside-service/pkg/kafka"
	rredis "roadside-service/pkg/redis"
)

// Notifier consumes request.created events, finds mechanics near the
// requester, and pushes them a notification.
type Notifier struct {
	kafka    *kafka.Client
	redis    *rredis.Client
	db       *pgxpool.Pool
	gateway  *Gateway
	radiusKm float64
	fallback geo.Point
}

// NewNotifier creates a notifier.
func NewNotifier(k *kafka.Client, r *rredis.Client, db *pgxpool.Pool, g *Gateway, radiusKm float64, fallback geo.Point) *Notifier {
	return &Notifier{kafka: k, redis: r, db: db, gateway: g, radiusKm: radiusKm, fallback: fallback}
}

// Start begins consuming request.created in a background goroutine.
func (n *Notifier) Start(ctx context.Context) {
	n.kafka.Subscribe(ctx, kafka.TopicRequestCreated, "notify-mechanics", func(data []byte) error {
		var ev events.RequestCreatedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}

		log.Printf("[notify] request.created → request=%s category=%s", ev.RequestID, ev.Category)

		// Requests without device coordinates fall back to the city center.
		loc := n.fallback
		if ev.Location != nil {
			loc = geo.Point{Lat: ev.Location.Lat, Lng: ev.Location.Lng}
		}

		mechanicIDs, err := n.redis.GetNearbyMechanics(ctx, loc.Lat, loc.Lng, n.radiusKm, 20)
		if err != nil || len(mechanicIDs) == 0 {
			log.Printf("[notify] no nearby mechanics for request %s", ev.RequestID)
			return nil
		}

		tokens, err := n.tokensForProfiles(ctx, mechanicIDs)
		if err != nil {
			return fmt.Errorf("load push tokens: %w", err)
		}
		if len(tokens) == 0 {
			return nil
		}

		title := "New service request nearby"
		if ev.Category == "emergency" {
			title = "Emergency request nearby"
		}
		result, err := n.gateway.SendBulk(ctx, tokens, title, ev.ServiceName, map[string]string{
			"request_id": ev.RequestID,
		})
		if err != nil {
			log.Printf("[notify] push failed for request %s: %v", ev.RequestID, err)
			return nil // best effort, no retry
		}

		log.Printf("[notify] request %s → %d mechanics (%d accepted, %d rejected)",
			ev.RequestID, len(mechanicIDs), result.Accepted, result.Rejected)
		return nil
	})
}

func (n *Notifier) tokensForProfiles(ctx context.Context, profileIDs []string) ([]string, error) {
	rows, err := n.db.Query(ctx,
		`SELECT token FROM push_tokens WHERE profile_id = ANY($1)`, profileIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
