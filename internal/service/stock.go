package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/importer"
	"stockledger/backend/internal/store"
)

func (s *Service) AddStock(ctx context.Context, req domain.StockEntryRequest) (domain.StockBatch, error) {
	actor, err := requireRole(ctx, domain.RoleInventory, domain.RoleAdmin)
	if err != nil {
		return domain.StockBatch{}, err
	}
	storeID, err := s.storeFor(actor, "")
	if err != nil {
		return domain.StockBatch{}, err
	}
	if req.Quantity < 1 {
		return domain.StockBatch{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
	}
	expiry, err := importer.Date(req.ExpiryDate)
	if err != nil {
		return domain.StockBatch{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	product, err := s.repo.GetProductBySKU(ctx, normalizeSKU(req.SKU))
	if err != nil {
		return domain.StockBatch{}, err
	}
	return s.addBatch(ctx, storeID, *product, req.Quantity, expiry, domain.BatchSourceManual)
}

func (s *Service) addBatch(ctx context.Context, storeID string, product domain.Product, qty int, expiry time.Time, source string) (domain.StockBatch, error) {
	if expiry.Before(s.today()) {
		return domain.StockBatch{}, fmt.Errorf("%w: expiry date is in the past", store.ErrInvalidInput)
	}
	batch, err := s.repo.AddBatch(ctx, domain.StockBatch{
		StoreID:    storeID,
		SKU:        product.SKU,
		Quantity:   qty,
		ExpiryDate: expiry,
		SourceType: source,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return domain.StockBatch{}, err
	}

	s.logAudit(ctx, storeID, "stock_add", "stock_batch", batch.ID, fmt.Sprintf("sku=%s,qty=%d,expiry=%s,source=%s", batch.SKU, batch.Quantity, batch.ExpiryDate.Format(time.DateOnly), source))
	return *batch, nil
}

// ImportStock adds one batch per uploaded row to the uploader's store.
// Bad rows are reported and skipped.
func (s *Service) ImportStock(ctx context.Context, filename string, r io.Reader) (domain.ImportReport, error) {
	actor, err := requireRole(ctx, domain.RoleInventory, domain.RoleAdmin)
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
	if err := sheet.Require("quantity", "expiry_date"); err != nil {
		return domain.ImportReport{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	report := importTally{domain.ImportReport{Lines: make([]domain.ImportLineResult, 0, len(sheet.Rows))}}
	for _, row := range sheet.Rows {
		result := domain.ImportLineResult{Line: row.Line, Product: productLabel(row)}
		batch, err := s.importStockRow(ctx, storeID, row, &result)
		if err != nil {
			result.Error = importError(err)
		} else {
			result.OK = true
			result.BatchID = batch.ID
		}
		report.add(result)
	}

	s.logAudit(ctx, storeID, "stock_import", "upload", filename, fmt.Sprintf("rows=%d,ok=%d,failed=%d", report.Processed, report.Succeeded, report.Failed))
	return report.ImportReport, nil
}

func (s *Service) importStockRow(ctx context.Context, storeID string, row importer.Row, result *domain.ImportLineResult) (domain.StockBatch, error) {
	product, err := s.resolveProduct(ctx, row)
	if err != nil {
		return domain.StockBatch{}, err
	}
	result.Product = product.Name
	qty, err := importer.Quantity(row.Get("quantity"))
	if err != nil {
		return domain.StockBatch{}, err
	}
	result.Quantity = qty
	expiry, err := importer.Date(row.Get("expiry_date"))
	if err != nil {
		return domain.StockBatch{}, err
	}
	return s.addBatch(ctx, storeID, *product, qty, expiry, domain.BatchSourceImport)
}

// ListBatches lists a store's batches with stock left, FEFO ordered.
func (s *Service) ListBatches(ctx context.Context, storeID string, sku string) ([]domain.StockBatch, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return nil, err
	}
	storeID, err = s.storeFor(actor, storeID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBatches(ctx, storeID, normalizeSKU(sku))
}

// resolveProduct finds a row's product by sku, falling back to product_name.
func (s *Service) resolveProduct(ctx context.Context, row importer.Row) (*domain.Product, error) {
	if sku := normalizeSKU(row.Get("sku")); sku != "" {
		return s.repo.GetProductBySKU(ctx, sku)
	}
	name := row.Get("product_name")
	if name == "" {
		name = row.Get("product")
	}
	if name == "" {
		return nil, fmt.Errorf("%w: product_name is empty", store.ErrInvalidInput)
	}
	return s.repo.GetProductByName(ctx, name)
}

func productLabel(row importer.Row) string {
	if name := row.Get("product_name"); name != "" {
		return name
	}
	if name := row.Get("product"); name != "" {
		return name
	}
	return row.Get("sku")
}

func importError(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return "product not found"
	}
	return err.Error()
}

type importTally struct {
	domain.ImportReport
}

func (r *importTally) add(line domain.ImportLineResult) {
	r.Processed++
	if line.OK {
		r.Succeeded++
	} else {
		r.Failed++
	}
	r.Lines = append(r.Lines, line)
}
