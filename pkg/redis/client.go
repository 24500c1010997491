package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(addr string) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err == nil {
			cancel()
			log.Println("Connected to Redis")
			return &Client{rdb: rdb}, nil
		}
		cancel()
		log.Printf("Waiting for Redis... (%d/20)", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("redis: failed to connect after 20 attempts")
}

// SetMechanicLocation stores a mechanic's position in a Redis GEO set.
func (c *Client) SetMechanicLocation(ctx context.Context, mechanicID string, lat, lng float64) error {
	return c.rdb.GeoAdd(ctx, "mechanic:locations", &goredis.GeoLocation{
		Name:      mechanicID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// GetNearbyMechanics returns mechanic IDs within radiusKm of (lat,lng).
func (c *Client) GetNearbyMechanics(ctx context.Context, lat, lng, radiusKm float64, count int) ([]string, error) {
	res, err := c.rdb.GeoSearch(ctx, "mechanic:locations", &goredis.GeoSearchQuery{
		Longitude:  lng,
		Latitude:   lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Count:      count,
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RemoveMechanicLocation removes a mechanic from the GEO set (e.g. when going offline).
func (c *Client) RemoveMechanicLocation(ctx context.Context, mechanicID string) error {
	return c.rdb.ZRem(ctx, "mechanic:locations", mechanicID).Err()
}

// CacheRequest stores the latest request snapshot in a hash with TTL.
func (c *Client) CacheRequest(ctx context.Context, requestID string, data map[string]string) error {
	key := "request:" + requestID
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, 24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// GetCachedRequest retrieves a cached request hash.
func (c *Client) GetCachedRequest(ctx context.Context, requestID string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, "request:"+requestID).Result()
}

// DropCachedRequest removes a cached snapshot (terminal or deleted rows).
func (c *Client) DropCachedRequest(ctx context.Context, requestID string) error {
	return c.rdb.Del(ctx, "request:"+requestID).Err()
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
