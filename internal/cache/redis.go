// Package cache keeps kudos records in Redis. Records never change once the
// contract stores them, so entries only expire to bound memory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"celokudos/internal/metrics"
	"celokudos/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	// KeyPrefix namespaces record keys
	KeyPrefix = "kudos:record:"
	// DefaultTTL is used when no TTL is configured
	DefaultTTL = 24 * time.Hour
)

// Options configure the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RecordCache stores records as JSON under KeyPrefix+id
type RecordCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, opts Options) (*RecordCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewWithClient(client, opts.TTL), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, ttl time.Duration) *RecordCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RecordCache{client: client, ttl: ttl}
}

// Key returns the Redis key of a record id
func Key(id *big.Int) string {
	return KeyPrefix + id.String()
}

// Get returns the cached record, reporting false on a miss
func (c *RecordCache) Get(ctx context.Context, id *big.Int) (*models.Kudos, bool, error) {
	raw, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("failed to get %s: %w", Key(id), err)
	}

	var record models.Kudos
	if err := json.Unmarshal(raw, &record); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("failed to decode %s: %w", Key(id), err)
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &record, true, nil
}

// Put stores a record
func (c *RecordCache) Put(ctx context.Context, record *models.Kudos) error {
	if record == nil || record.ID == nil {
		return fmt.Errorf("record without id")
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode kudos %s: %w", record.ID, err)
	}

	if err := c.client.Set(ctx, Key(record.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", Key(record.ID), err)
	}
	return nil
}

// Ping checks the connection
func (c *RecordCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection
func (c *RecordCache) Close() error {
	return c.client.Close()
}
