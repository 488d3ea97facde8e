// Package cache memoizes computed signal reports in Redis. Reports are
// keyed by user, domain, and window length and expire on a TTL; ingestion
// events invalidate a user's keys eagerly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andychuong/spendsense-sub000/internal/config"
	"github.com/andychuong/spendsense-sub000/internal/metrics"
	"github.com/andychuong/spendsense-sub000/internal/models"
)

// Client wraps the Redis client with signal-report operations
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a new Redis-backed report cache
func New(cfg config.RedisConfig, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func reportKey(userID string, domain models.SignalDomain, windowDays int) string {
	return fmt.Sprintf("signals:%s:%s:%d", userID, domain, windowDays)
}

// Get retrieves a cached report. A miss returns nil with no error.
func (c *Client) Get(ctx context.Context, userID string, domain models.SignalDomain, windowDays int) (*models.SignalReport, error) {
	jsonData, err := c.rdb.Get(ctx, reportKey(userID, domain, windowDays)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheOps.WithLabelValues(metrics.CacheMiss).Inc()
		return nil, nil
	}
	if err != nil {
		metrics.CacheOps.WithLabelValues(metrics.CacheError).Inc()
		return nil, fmt.Errorf("failed to get cached report: %w", err)
	}

	var report models.SignalReport
	if err := json.Unmarshal(jsonData, &report); err != nil {
		metrics.CacheOps.WithLabelValues(metrics.CacheError).Inc()
		return nil, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}
	metrics.CacheOps.WithLabelValues(metrics.CacheHit).Inc()
	return &report, nil
}

// Set caches a report under its (user, domain, window) key with the
// configured TTL.
func (c *Client) Set(ctx context.Context, report *models.SignalReport) error {
	jsonData, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	key := reportKey(report.UserID, report.Domain, report.Window.Days)
	if err := c.rdb.Set(ctx, key, jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// InvalidateUser deletes every cached report for the user. Called when new
// data lands so the next run recomputes from fresh records.
func (c *Client) InvalidateUser(ctx context.Context, userID string) error {
	pattern := fmt.Sprintf("signals:%s:*", userID)
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys for user %s: %w", userID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache for user %s: %w", userID, err)
	}
	return nil
}
