package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"stockledger/backend/internal/domain"
)

// defaultAssessmentTTL applies when the caller passes no TTL. Keys already
// roll over daily, so a day is the longest an entry can be useful.
const defaultAssessmentTTL = 24 * time.Hour

// RedisTrendCache shares AI trend assessments between the API server and the
// maintenance job, so a score bought by one is reused by the other.
type RedisTrendCache struct {
	client *redis.Client
}

func NewRedisTrendCache(addr string, password string, db int) *RedisTrendCache {
	return &RedisTrendCache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *RedisTrendCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisTrendCache) Close() error {
	return c.client.Close()
}

// Get returns the stored assessment for a signal key. Entries that no longer
// decode into an AI assessment count as misses.
func (c *RedisTrendCache) Get(ctx context.Context, key string) (*domain.TrendAssessment, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read trend assessment: %w", err)
	}
	assessment, ok := decodeAssessment(payload)
	return assessment, ok, nil
}

// Set stores AI assessments only. Rule scores are cheap to recompute and are
// never written.
func (c *RedisTrendCache) Set(ctx context.Context, key string, value *domain.TrendAssessment, ttl time.Duration) error {
	if value == nil || value.Source != domain.TrendSourceAI {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultAssessmentTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("write trend assessment: %w", err)
	}
	return nil
}

func decodeAssessment(payload []byte) (*domain.TrendAssessment, bool) {
	var assessment domain.TrendAssessment
	if err := json.Unmarshal(payload, &assessment); err != nil {
		return nil, false
	}
	if assessment.Source != domain.TrendSourceAI {
		return nil, false
	}
	return &assessment, true
}
