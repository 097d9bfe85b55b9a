package trend

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"stockledger/backend/internal/cache"
	"stockledger/backend/internal/domain"
)

// Input is what an external scorer sees for one product.
type Input struct {
	Product   domain.Product
	Signals   domain.TrendSignals
	RuleScore float64
	At        time.Time
}

// Scorer is an optional model-backed assessor. Errors make the engine fall
// back to the rule score.
type Scorer interface {
	Assess(ctx context.Context, in Input) (domain.TrendAssessment, error)
}

type Engine struct {
	cache   cache.TrendCache
	ttl     time.Duration
	scorer  Scorer
	timeout time.Duration
	logger  *zap.Logger
}

func NewEngine(cacheStore cache.TrendCache, cacheTTL time.Duration, scorer Scorer, logger *zap.Logger) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopTrendCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		cache:   cacheStore,
		ttl:     cacheTTL,
		scorer:  scorer,
		timeout: 20 * time.Second,
		logger:  logger,
	}
}

func (e *Engine) AIEnabled() bool {
	return e.scorer != nil
}

// Assess scores one product. The rule score is always computed; the AI
// scorer, when configured, may replace it.
func (e *Engine) Assess(ctx context.Context, product domain.Product, signals domain.TrendSignals, at time.Time) domain.TrendAssessment {
	rules := domain.TrendAssessment{Score: Score(signals), Source: domain.TrendSourceRules}
	if e.scorer == nil {
		return rules
	}

	key := buildCacheKey(product, signals, at)
	if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		return *cached
	} else if err != nil {
		e.logger.Warn("trend cache read failed", zap.String("sku", product.SKU), zap.Error(err))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	assessment, err := e.scorer.Assess(callCtx, Input{Product: product, Signals: signals, RuleScore: rules.Score, At: at})
	if err != nil {
		e.logger.Warn("ai trend scoring failed, using rules", zap.String("sku", product.SKU), zap.Error(err))
		rules.Reason = "ai unavailable"
		return rules
	}
	assessment.Score = round1(clamp(assessment.Score, MinScore, MaxScore))
	assessment.Source = domain.TrendSourceAI

	if err := e.cache.Set(ctx, key, &assessment, e.ttl); err != nil {
		e.logger.Warn("trend cache write failed", zap.String("sku", product.SKU), zap.Error(err))
	}
	return assessment
}

func buildCacheKey(product domain.Product, s domain.TrendSignals, at time.Time) string {
	parts := []string{
		product.SKU,
		product.Category,
		fmt.Sprintf("m:%d", s.StockMovements30d),
		fmt.Sprintf("s:%d", s.Sales30d),
		fmt.Sprintf("r:%d", s.Requests30d),
		fmt.Sprintf("a:%d", s.Activity7d),
		fmt.Sprintf("k:%d", s.Stock),
		at.UTC().Format("2006-01-02"),
	}
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "stockledger:trend:" + hex.EncodeToString(hash[:])
}
