package service

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
	"stockledger/backend/internal/trend"
)

// RefreshTrendScores rescores every active product from the last 30 days
// of activity across all stores.
func (s *Service) RefreshTrendScores(ctx context.Context) (domain.TrendRefreshResult, error) {
	now := s.now()
	today := domain.DateOnly(now)
	result := domain.TrendRefreshResult{RefreshAt: now}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return result, err
	}
	signals, err := s.repo.TrendSignals(ctx, now.AddDate(0, 0, -30), now.AddDate(0, 0, -7), today)
	if err != nil {
		return result, err
	}

	for _, p := range products {
		sig, ok := signals[p.SKU]
		if !ok {
			sig = domain.TrendSignals{SKU: p.SKU}
		}
		assessment := s.trends.Assess(ctx, p, sig, today)
		if err := s.repo.UpdateTrendScore(ctx, p.SKU, assessment.Score, now); err != nil {
			return result, fmt.Errorf("update trend score %s: %w", p.SKU, err)
		}
		result.Updated++
		switch {
		case assessment.Source == domain.TrendSourceAI:
			result.AIScored++
		case s.trends.AIEnabled():
			result.Fallbacks++
		}
	}

	s.logger.Info("trend scores refreshed",
		zap.Int("updated", result.Updated),
		zap.Int("ai_scored", result.AIScored),
		zap.Int("fallbacks", result.Fallbacks),
	)
	return result, nil
}

// RefreshTrends is the user-triggered refresh.
func (s *Service) RefreshTrends(ctx context.Context) (domain.TrendRefreshResult, error) {
	if _, err := requireRole(ctx, domain.RoleMarketing, domain.RoleAdmin); err != nil {
		return domain.TrendRefreshResult{}, err
	}
	result, err := s.RefreshTrendScores(ctx)
	if err != nil {
		return result, err
	}
	s.logAudit(ctx, "", "trend_refresh", "product", "*", fmt.Sprintf("updated=%d", result.Updated))
	return result, nil
}

// TrendDashboard lists products by trend score with their total stock
// across all stores, plus the KPI counters.
func (s *Service) TrendDashboard(ctx context.Context) (domain.TrendDashboard, error) {
	if _, err := requireRole(ctx, domain.RoleMarketing, domain.RoleAdmin); err != nil {
		return domain.TrendDashboard{}, err
	}
	stock, err := s.productStock(ctx, "")
	if err != nil {
		return domain.TrendDashboard{}, err
	}

	slices.SortStableFunc(stock, func(a, b domain.ProductStock) int {
		switch {
		case a.TrendScore > b.TrendScore:
			return -1
		case a.TrendScore < b.TrendScore:
			return 1
		}
		return 0
	})
	rows := make([]domain.TrendRow, 0, len(stock))
	for _, p := range stock {
		p.ABCClass = trend.Classify(p.TrendScore)
		rows = append(rows, domain.TrendRow{ProductStock: p})
	}
	return domain.TrendDashboard{
		Products:    rows,
		KPIs:        trend.BuildKPIs(stock),
		GeneratedAt: s.now(),
	}, nil
}

func (s *Service) buildRecommendation(product domain.Product, stock int) domain.Recommendation {
	action := trend.Recommend(product.Name, product.TrendScore, stock, product.CurrentPrice)
	return domain.Recommendation{
		SKU:            product.SKU,
		Type:           action.Type,
		Text:           action.Text,
		TrendScore:     product.TrendScore,
		StockLevel:     stock,
		SuggestedValue: action.SuggestedValue,
		SuggestedQty:   action.SuggestedQty,
		Status:         domain.RecommendationPending,
		CreatedAt:      s.now(),
	}
}

func (s *Service) totalStock(ctx context.Context, sku string) (int, error) {
	batches, err := s.repo.ListBatches(ctx, "", sku)
	if err != nil {
		return 0, err
	}
	return ledger.TotalQuantity(ledger.Available(batches, s.today())), nil
}

// Recommendation computes the current advice for a product without storing it.
func (s *Service) Recommendation(ctx context.Context, sku string) (domain.Recommendation, error) {
	if _, err := requireRole(ctx); err != nil {
		return domain.Recommendation{}, err
	}
	product, err := s.repo.GetProductBySKU(ctx, normalizeSKU(sku))
	if err != nil {
		return domain.Recommendation{}, err
	}
	stock, err := s.totalStock(ctx, product.SKU)
	if err != nil {
		return domain.Recommendation{}, err
	}
	return s.buildRecommendation(*product, stock), nil
}

// ApplyRecommendation carries out the current advice for a product. Price
// actions reprice the product; restock actions ask inventory to reorder.
func (s *Service) ApplyRecommendation(ctx context.Context, sku string) (domain.RecommendationResult, error) {
	actor, err := requireRole(ctx, domain.RoleMarketing, domain.RoleAdmin)
	if err != nil {
		return domain.RecommendationResult{}, err
	}
	product, err := s.repo.GetProductBySKU(ctx, normalizeSKU(sku))
	if err != nil {
		return domain.RecommendationResult{}, err
	}
	stock, err := s.totalStock(ctx, product.SKU)
	if err != nil {
		return domain.RecommendationResult{}, err
	}

	action := trend.Recommend(product.Name, product.TrendScore, stock, product.CurrentPrice)
	message := "Recommendation recorded: " + action.Text
	if action.NewPrice != nil {
		// Only a discount action changes the discount; a price raise keeps it.
		discount := product.DiscountPercent
		if action.Discount != nil {
			discount = *action.Discount
		}
		updated, err := s.repo.UpdateProductPricing(ctx, product.SKU, *action.NewPrice, discount)
		if err != nil {
			return domain.RecommendationResult{}, err
		}
		product = updated
		message = fmt.Sprintf("Price of %s set to %s", product.Name, product.CurrentPrice.StringFixed(2))
	}
	if action.SuggestedQty != nil {
		s.emitLogged(ctx, domain.Notification{
			Title:      "Reorder suggested: " + product.Name,
			Message:    fmt.Sprintf("%s. Suggested quantity: %d units (current stock %d).", action.Text, *action.SuggestedQty, stock),
			Type:       domain.NotificationReorderNeeded,
			Priority:   domain.PriorityHigh,
			TargetRole: domain.RoleInventory,
			SKU:        product.SKU,
			CreatedBy:  actor.Username,
		})
		message = fmt.Sprintf("Inventory asked to reorder %d units of %s", *action.SuggestedQty, product.Name)
	}

	at := s.now()
	rec := s.buildRecommendation(*product, stock)
	rec.Type, rec.Text = action.Type, action.Text
	rec.SuggestedValue, rec.SuggestedQty = action.SuggestedValue, action.SuggestedQty
	rec.Status = domain.RecommendationApplied
	rec.AppliedBy = actor.Username
	rec.AppliedAt = &at
	saved, err := s.repo.SaveRecommendation(ctx, rec)
	if err != nil {
		return domain.RecommendationResult{}, err
	}

	s.logAudit(ctx, "", "recommendation_apply", "product", product.SKU, fmt.Sprintf("type=%s", saved.Type))
	return domain.RecommendationResult{Recommendation: *saved, Product: *product, Message: message}, nil
}

// DismissRecommendation records that the current advice for a product was
// declined and retires any pending records for it.
func (s *Service) DismissRecommendation(ctx context.Context, sku string) (domain.Recommendation, error) {
	actor, err := requireRole(ctx, domain.RoleMarketing, domain.RoleAdmin)
	if err != nil {
		return domain.Recommendation{}, err
	}
	product, err := s.repo.GetProductBySKU(ctx, normalizeSKU(sku))
	if err != nil {
		return domain.Recommendation{}, err
	}
	stock, err := s.totalStock(ctx, product.SKU)
	if err != nil {
		return domain.Recommendation{}, err
	}
	retired, err := s.repo.DismissRecommendations(ctx, product.SKU)
	if err != nil {
		return domain.Recommendation{}, err
	}

	at := s.now()
	rec := s.buildRecommendation(*product, stock)
	rec.Status = domain.RecommendationDismissed
	rec.AppliedBy = actor.Username
	rec.AppliedAt = &at
	saved, err := s.repo.SaveRecommendation(ctx, rec)
	if err != nil {
		return domain.Recommendation{}, err
	}
	s.logAudit(ctx, "", "recommendation_dismiss", "product", product.SKU, fmt.Sprintf("type=%s,retired=%d", saved.Type, retired))
	return *saved, nil
}

func (s *Service) ListRecommendations(ctx context.Context, sku string, status string) ([]domain.Recommendation, error) {
	if _, err := requireRole(ctx, domain.RoleMarketing, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListRecommendations(ctx, normalizeSKU(sku), status, 100)
}
