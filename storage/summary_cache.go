package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"listen-history/models"
)

const (
	summaryKeyPrefix  = "listen-history:summary:"
	connectionTimeout = 5 * time.Second
)

// RedisSummaryCache memoises generated reports in Redis. Entries expire
// after ttl; keys carry the dataset version so a refresh never serves an
// old report.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisSummaryCache wraps a connected client.
func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{client: client, ttl: ttl}
}

// Get returns the cached report for key, if any.
func (c *RedisSummaryCache) Get(ctx context.Context, key string) (*models.InsightReport, bool, error) {
	raw, err := c.client.Get(ctx, summaryKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get summary: %w", err)
	}

	var r models.InsightReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false, fmt.Errorf("redis: decode summary: %w", err)
	}
	return &r, true, nil
}

// Set stores r under key.
func (c *RedisSummaryCache) Set(ctx context.Context, key string, r *models.InsightReport) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: encode summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set summary: %w", err)
	}
	return nil
}
