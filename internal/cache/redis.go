package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/stock-forecast-service/internal/config"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

const keyPrefix = "prediction"

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// PredictionCache stores generated predictions keyed by symbol and
// horizon label so repeat requests skip the model.
type PredictionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPredictionCache wraps an existing client. A zero ttl keeps entries
// until they are invalidated.
func NewPredictionCache(client *redis.Client, ttl time.Duration) *PredictionCache {
	return &PredictionCache{client: client, ttl: ttl}
}

// Key returns the cache key for a symbol and horizon
func Key(symbol string, daysAhead int) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, strings.ToUpper(symbol), daysAhead)
}

// Get returns the cached prediction, reporting false on a miss
func (c *PredictionCache) Get(ctx context.Context, symbol string, daysAhead int) (*models.Prediction, bool, error) {
	b, err := c.client.Get(ctx, Key(symbol, daysAhead)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached prediction: %w", err)
	}

	var p models.Prediction
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached prediction: %w", err)
	}
	return &p, true, nil
}

// Set stores a prediction under its symbol and horizon
func (c *PredictionCache) Set(ctx context.Context, p *models.Prediction) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode prediction: %w", err)
	}
	if err := c.client.Set(ctx, Key(p.Symbol, p.DaysAhead), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache prediction: %w", err)
	}
	return nil
}

// Invalidate drops every cached horizon for a symbol
func (c *PredictionCache) Invalidate(ctx context.Context, symbol string) error {
	pattern := fmt.Sprintf("%s:%s:*", keyPrefix, strings.ToUpper(symbol))

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached predictions: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached predictions: %w", err)
	}
	return nil
}
