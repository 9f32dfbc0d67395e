// Package cache owns all Redis state: the per-route ranked snapshot sets,
// the durable route-catalog snapshot and the active shard-year pointer.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hotfeed/config"
	"hotfeed/types"

	"github.com/redis/go-redis/v9"
)

const (
	// routesKey holds the most recent /all snapshot. Never expires.
	routesKey = "news:routes"
	// shardYearKey holds the active shard year. Never expires.
	shardYearKey = "news:shard_year"
	// rankedTTL bounds how long an unrefreshed ranked set survives.
	rankedTTL = time.Hour

	opTimeout = 5 * time.Second
)

// ErrNoRoutes is returned when no cached route catalog exists yet.
var ErrNoRoutes = errors.New("no cached routes")

// Client wraps one Redis connection.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies connectivity with a ping.
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr(), err)
	}
	return &Client{rdb: rdb}, nil
}

// Close closes the underlying Redis client.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SaveRoutes overwrites the durable route-catalog snapshot.
func (c *Client) SaveRoutes(ctx context.Context, routes []types.Route) error {
	b, err := json.Marshal(routes)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.rdb.Set(ctx, routesKey, b, 0).Err()
}

// LoadRoutes returns the cached route catalog, or ErrNoRoutes if none has
// been saved yet.
func (c *Client) LoadRoutes(ctx context.Context) ([]types.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	b, err := c.rdb.Get(ctx, routesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoRoutes
	}
	if err != nil {
		return nil, err
	}
	var routes []types.Route
	if err := json.Unmarshal(b, &routes); err != nil {
		return nil, fmt.Errorf("decode cached routes: %w", err)
	}
	return routes, nil
}

// ShardYear reads the persisted active shard year. ok is false when the
// pointer has never been written.
func (c *Client) ShardYear(ctx context.Context) (year int, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	s, err := c.rdb.Get(ctx, shardYearKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	year, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt shard year %q: %w", s, err)
	}
	return year, true, nil
}

// SetShardYear persists the active shard year so it survives restarts.
func (c *Client) SetShardYear(ctx context.Context, year int) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.rdb.Set(ctx, shardYearKey, strconv.Itoa(year), 0).Err()
}

// replaceRanked clears a ranked set and repopulates it in one pipeline,
// refreshing the TTL.
func (c *Client) replaceRanked(ctx context.Context, key string, entries []Entry) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, key)
	for _, e := range entries {
		pipe.ZAdd(ctx, key, redis.Z{Score: e.Score, Member: e.Member})
	}
	pipe.Expire(ctx, key, rankedTTL)
	_, err := pipe.Exec(ctx)
	return err
}
