package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/importer"
	"stockledger/backend/internal/store"
)

// CreateBill sells the requested lines from the actor's store. Repeated
// SKUs are merged into one line before stock is deducted.
func (s *Service) CreateBill(ctx context.Context, req domain.BillCreateRequest) (domain.Bill, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.Bill{}, err
	}
	storeID, err := s.storeFor(actor, "")
	if err != nil {
		return domain.Bill{}, err
	}
	lines, err := mergeLines(req.Items)
	if err != nil {
		return domain.Bill{}, err
	}
	return s.createBill(ctx, actor, storeID, lines, domain.BillSourceCounter)
}

func (s *Service) createBill(ctx context.Context, actor domain.Actor, storeID string, lines []domain.BillLineRequest, source string) (domain.Bill, error) {
	bill, err := s.repo.CreateBill(ctx, domain.Bill{
		StoreID:   storeID,
		CreatedBy: actor.Username,
		Source:    source,
		CreatedAt: s.now(),
	}, lines, s.today())
	if err != nil {
		return domain.Bill{}, err
	}

	s.logger.Info("bill created",
		zap.String("number", bill.Number),
		zap.String("store_id", storeID),
		zap.String("total", bill.Total.StringFixed(2)),
		zap.Int("lines", len(bill.Items)),
	)
	s.logAudit(ctx, storeID, "bill_create", "bill", bill.ID, fmt.Sprintf("number=%s,total=%s,source=%s", bill.Number, bill.Total.StringFixed(2), source))
	return *bill, nil
}

func mergeLines(items []domain.BillLineRequest) ([]domain.BillLineRequest, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: bill has no items", store.ErrInvalidInput)
	}
	merged := make([]domain.BillLineRequest, 0, len(items))
	index := map[string]int{}
	for _, item := range items {
		sku := normalizeSKU(item.SKU)
		if sku == "" || item.Quantity < 1 {
			return nil, fmt.Errorf("%w: every item needs a sku and a positive quantity", store.ErrInvalidInput)
		}
		if i, ok := index[sku]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[sku] = len(merged)
		merged = append(merged, domain.BillLineRequest{SKU: sku, Quantity: item.Quantity})
	}
	return merged, nil
}

// ImportBills turns every uploaded row into its own bill. A failing row
// leaves the others untouched.
func (s *Service) ImportBills(ctx context.Context, filename string, r io.Reader) (domain.ImportReport, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.ImportReport{}, err
	}
	storeID, err := s.storeFor(actor, "")
	if err != nil {
		return domain.ImportReport{}, err
	}

	sheet, err := importer.ReadRows(filename, r)
	if err != nil {
		return domain.ImportReport{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if err := sheet.Require("quantity"); err != nil {
		return domain.ImportReport{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	report := importTally{domain.ImportReport{Lines: make([]domain.ImportLineResult, 0, len(sheet.Rows))}}
	for _, row := range sheet.Rows {
		result := domain.ImportLineResult{Line: row.Line, Product: productLabel(row)}
		bill, err := s.importBillRow(ctx, actor, storeID, row, &result)
		if err != nil {
			result.Error = importError(err)
		} else {
			result.OK = true
			result.BillID = bill.ID
		}
		report.add(result)
	}

	s.logAudit(ctx, storeID, "bill_import", "upload", filename, fmt.Sprintf("rows=%d,ok=%d,failed=%d", report.Processed, report.Succeeded, report.Failed))
	return report.ImportReport, nil
}

func (s *Service) importBillRow(ctx context.Context, actor domain.Actor, storeID string, row importer.Row, result *domain.ImportLineResult) (domain.Bill, error) {
	product, err := s.resolveProduct(ctx, row)
	if err != nil {
		return domain.Bill{}, err
	}
	result.Product = product.Name
	qty, err := importer.Quantity(row.Get("quantity"))
	if err != nil {
		return domain.Bill{}, err
	}
	result.Quantity = qty
	return s.createBill(ctx, actor, storeID, []domain.BillLineRequest{{SKU: product.SKU, Quantity: qty}}, domain.BillSourceUpload)
}

// GetBill hides other stores' bills from non-admins.
func (s *Service) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.Bill{}, err
	}
	bill, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	if actor.Role != domain.RoleAdmin && bill.StoreID != actor.StoreID {
		return domain.Bill{}, store.ErrNotFound
	}
	return *bill, nil
}

// ListBills returns the store's bills of the last days days, newest first.
func (s *Service) ListBills(ctx context.Context, storeID string, days int, limit int) ([]domain.Bill, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return nil, err
	}
	storeID, err = s.storeFor(actor, storeID)
	if err != nil {
		return nil, err
	}
	if days < 1 {
		days = 30
	}
	since := s.today().AddDate(0, 0, -(days - 1))
	return s.repo.ListBills(ctx, storeID, since, limit)
}

func (s *Service) SalesSummary(ctx context.Context, storeID string) (domain.SalesSummary, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	storeID, err = s.storeFor(actor, storeID)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	now := s.now()
	today := domain.DateOnly(now)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	summary := domain.SalesSummary{StoreID: storeID, MonthLabel: monthStart.Format("January 2006"), GeneratedAt: now}
	if summary.TodayCount, summary.TodayAmount, err = s.repo.SalesTotals(ctx, storeID, today, tomorrow); err != nil {
		return domain.SalesSummary{}, err
	}
	if summary.MonthCount, summary.MonthAmount, err = s.repo.SalesTotals(ctx, storeID, monthStart, tomorrow); err != nil {
		return domain.SalesSummary{}, err
	}
	if summary.RecentBills, err = s.repo.ListBills(ctx, storeID, time.Time{}, 10); err != nil {
		return domain.SalesSummary{}, err
	}
	return summary, nil
}
