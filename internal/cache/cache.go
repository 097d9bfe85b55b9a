// Package cache holds trend assessments from the AI scorer. Keys are built by
// the trend engine from a product's SKU, its demand signals and the day, so
// an entry is only reused while none of those change.
package cache

import (
	"context"
	"time"

	"stockledger/backend/internal/domain"
)

// TrendCache stores one assessment per signal key. A miss is (nil, false, nil);
// errors are reported so the engine can log them and score without the cache.
type TrendCache interface {
	Get(ctx context.Context, key string) (*domain.TrendAssessment, bool, error)
	Set(ctx context.Context, key string, value *domain.TrendAssessment, ttl time.Duration) error
}

// NoopTrendCache always misses. Used when Redis is not configured, which
// means every refresh asks the model again.
type NoopTrendCache struct{}

func (NoopTrendCache) Get(context.Context, string) (*domain.TrendAssessment, bool, error) {
	return nil, false, nil
}

func (NoopTrendCache) Set(context.Context, string, *domain.TrendAssessment, time.Duration) error {
	return nil
}
