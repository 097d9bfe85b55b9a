// Package ledger holds the FEFO (first expired, first out) stock rules.
// Stores call Deduct for every stock-reducing event: counter sales,
// uploaded bills and warehouse fulfilment of order requests.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"stockledger/backend/internal/domain"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// InsufficientStockError reports how much stock was live when a deduction failed.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type Deduction struct {
	SKU         string
	Quantity    int
	Allocations []domain.BatchAllocation
}

// Deduct plans the consumption of qty units of sku from batches. Nothing is
// mutated; callers apply the returned allocations inside their own transaction.
func Deduct(sku string, batches []domain.StockBatch, qty int, today time.Time) (Deduction, error) {
	if qty <= 0 {
		return Deduction{}, ErrInvalidQuantity
	}
	owned := make([]domain.StockBatch, 0, len(batches))
	for _, batch := range batches {
		if batch.SKU == sku {
			owned = append(owned, batch)
		}
	}
	live := Available(owned, today)

	total := TotalQuantity(live)
	if total < qty {
		return Deduction{}, &InsufficientStockError{SKU: sku, Requested: qty, Available: total}
	}

	result := Deduction{SKU: sku, Quantity: qty}
	remaining := qty
	for _, batch := range live {
		if remaining == 0 {
			break
		}
		used := min(remaining, batch.Quantity)
		result.Allocations = append(result.Allocations, domain.BatchAllocation{
			BatchID:    batch.ID,
			SKU:        batch.SKU,
			ExpiryDate: batch.ExpiryDate,
			Quantity:   used,
		})
		remaining -= used
	}
	return result, nil
}

// Apply subtracts allocations from batches in place and returns the
// touched batches. A batch never drops below zero.
func Apply(batches []domain.StockBatch, allocations []domain.BatchAllocation) ([]domain.StockBatch, error) {
	index := make(map[string]int, len(batches))
	for i, batch := range batches {
		index[batch.ID] = i
	}
	touched := make([]domain.StockBatch, 0, len(allocations))
	for _, alloc := range allocations {
		i, ok := index[alloc.BatchID]
		if !ok {
			return nil, fmt.Errorf("batch %s not loaded", alloc.BatchID)
		}
		if alloc.Quantity <= 0 || batches[i].Quantity < alloc.Quantity {
			return nil, &InsufficientStockError{SKU: alloc.SKU, Requested: alloc.Quantity, Available: batches[i].Quantity}
		}
		batches[i].Quantity -= alloc.Quantity
		touched = append(touched, batches[i])
	}
	return touched, nil
}

// Available returns the live batches (quantity > 0, not expired) in FEFO order.
func Available(batches []domain.StockBatch, today time.Time) []domain.StockBatch {
	today = domain.DateOnly(today)
	live := make([]domain.StockBatch, 0, len(batches))
	for _, batch := range batches {
		if batch.Quantity <= 0 || IsExpired(batch, today) {
			continue
		}
		live = append(live, batch)
	}
	slices.SortFunc(live, CompareFEFO)
	return live
}

// Expired returns batches that still hold units but expired before today.
func Expired(batches []domain.StockBatch, today time.Time) []domain.StockBatch {
	today = domain.DateOnly(today)
	result := make([]domain.StockBatch, 0)
	for _, batch := range batches {
		if batch.Quantity > 0 && IsExpired(batch, today) {
			result = append(result, batch)
		}
	}
	slices.SortFunc(result, CompareFEFO)
	return result
}

func IsExpired(batch domain.StockBatch, today time.Time) bool {
	return domain.DateOnly(batch.ExpiryDate).Before(domain.DateOnly(today))
}

func TotalQuantity(batches []domain.StockBatch) int {
	total := 0
	for _, batch := range batches {
		total += batch.Quantity
	}
	return total
}

// NearestExpiry returns the earliest live batch, if any.
func NearestExpiry(batches []domain.StockBatch, today time.Time) (domain.StockBatch, bool) {
	live := Available(batches, today)
	if len(live) == 0 {
		return domain.StockBatch{}, false
	}
	return live[0], true
}

// DaysUntil counts whole days from today to the batch expiry date.
func DaysUntil(batch domain.StockBatch, today time.Time) int {
	return int(domain.DateOnly(batch.ExpiryDate).Sub(domain.DateOnly(today)).Hours() / 24)
}

// Summarize builds the stock view of a product from its batches.
func Summarize(product domain.Product, batches []domain.StockBatch, today time.Time) domain.ProductStock {
	view := domain.ProductStock{Product: product}
	view.TotalStock = TotalQuantity(Available(batches, today))
	view.ExpiredStock = TotalQuantity(Expired(batches, today))
	if nearest, ok := NearestExpiry(batches, today); ok {
		days := DaysUntil(nearest, today)
		view.DaysToNearestExpiry = &days
	}
	return view
}

// CompareFEFO orders batches by expiry date, then creation time, then ID.
func CompareFEFO(a, b domain.StockBatch) int {
	if c := a.ExpiryDate.Compare(b.ExpiryDate); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
