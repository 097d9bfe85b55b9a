package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
	"stockledger/backend/internal/store"
	"stockledger/backend/internal/trend"
)

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}

	req.SKU = normalizeSKU(req.SKU)
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.SKU == "" || req.Name == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if !req.SellingPrice.IsPositive() || req.CostPrice.IsNegative() {
		return domain.Product{}, store.ErrInvalidInput
	}

	selling := req.SellingPrice.Round(2)
	created, err := s.repo.CreateProduct(ctx, domain.Product{
		SKU:          req.SKU,
		Name:         req.Name,
		Category:     defaultString(req.Category, "general"),
		CostPrice:    req.CostPrice.Round(2),
		SellingPrice: selling,
		CurrentPrice: selling,
		TrendScore:   trend.BaseScore,
		ABCClass:     trend.Classify(trend.BaseScore),
		Active:       true,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "", "product_create", "product", created.SKU, fmt.Sprintf("name=%s,price=%s", created.Name, created.SellingPrice))
	return *created, nil
}

// ListProductStock summarizes every active product's stock in one store.
func (s *Service) ListProductStock(ctx context.Context, storeID string) ([]domain.ProductStock, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return nil, err
	}
	storeID, err = s.storeFor(actor, storeID)
	if err != nil {
		return nil, err
	}
	return s.productStock(ctx, storeID)
}

// productStock builds stock views for storeID, or for every store when empty.
func (s *Service) productStock(ctx context.Context, storeID string) ([]domain.ProductStock, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	batches, err := s.repo.ListBatches(ctx, storeID, "")
	if err != nil {
		return nil, err
	}
	grouped := groupBySKU(batches)
	today := s.today()

	rows := make([]domain.ProductStock, 0, len(products))
	for _, p := range products {
		rows = append(rows, ledger.Summarize(p, grouped[p.SKU], today))
	}
	return rows, nil
}

func (s *Service) ProductDetails(ctx context.Context, sku string, storeID string) (domain.ProductDetails, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.ProductDetails{}, err
	}
	storeID, err = s.storeFor(actor, storeID)
	if err != nil {
		return domain.ProductDetails{}, err
	}

	product, err := s.repo.GetProductBySKU(ctx, normalizeSKU(sku))
	if err != nil {
		return domain.ProductDetails{}, err
	}
	batches, err := s.repo.ListBatches(ctx, storeID, product.SKU)
	if err != nil {
		return domain.ProductDetails{}, err
	}
	bills, err := s.repo.ListBills(ctx, storeID, s.now().AddDate(0, 0, -30), 0)
	if err != nil {
		return domain.ProductDetails{}, err
	}
	sold := 0
	for _, bill := range bills {
		for _, item := range bill.Items {
			if item.SKU == product.SKU {
				sold += item.Quantity
			}
		}
	}

	view := ledger.Summarize(*product, batches, s.today())
	rec := s.buildRecommendation(*product, view.TotalStock)
	if batches == nil {
		batches = []domain.StockBatch{}
	}
	return domain.ProductDetails{
		Product:        view,
		Batches:        ledger.Available(batches, s.today()),
		SoldLast30Days: sold,
		Recommendation: &rec,
	}, nil
}

// SearchProducts backs the billing autocomplete. Blank queries match nothing.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	if _, err := requireRole(ctx); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}, nil
	}
	return s.repo.SearchProducts(ctx, query, 10)
}

// ApplyDiscount sets current price to selling × (1 − d/100).
func (s *Service) ApplyDiscount(ctx context.Context, req domain.DiscountRequest) (domain.Product, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return domain.Product{}, fmt.Errorf("%w: discount must be between 0 and 100", store.ErrInvalidInput)
	}

	product, err := s.repo.GetProductBySKU(ctx, normalizeSKU(req.SKU))
	if err != nil {
		return domain.Product{}, err
	}
	price := trend.ApplyDiscount(product.SellingPrice, decimal.NewFromFloat(req.DiscountPercent))
	updated, err := s.repo.UpdateProductPricing(ctx, product.SKU, price, req.DiscountPercent)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "", "product_discount", "product", updated.SKU, fmt.Sprintf("discount=%.2f,price=%s", req.DiscountPercent, updated.CurrentPrice))
	return *updated, nil
}
