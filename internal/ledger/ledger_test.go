package ledger

import (
	"errors"
	"testing"
	"time"

	"stockledger/backend/internal/domain"
)

func day(offset int) time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func sampleBatches() []domain.StockBatch {
	created := day(-20)
	return []domain.StockBatch{
		{ID: "b-late", SKU: "MILK", Quantity: 10, ExpiryDate: day(30), CreatedAt: created},
		{ID: "b-expired", SKU: "MILK", Quantity: 7, ExpiryDate: day(-1), CreatedAt: created},
		{ID: "b-soon", SKU: "MILK", Quantity: 4, ExpiryDate: day(2), CreatedAt: created},
		{ID: "b-today", SKU: "MILK", Quantity: 3, ExpiryDate: day(0), CreatedAt: created},
		{ID: "b-empty", SKU: "MILK", Quantity: 0, ExpiryDate: day(1), CreatedAt: created},
		{ID: "b-other", SKU: "BREAD", Quantity: 50, ExpiryDate: day(1), CreatedAt: created},
	}
}

func TestDeductConsumesEarliestExpiryFirst(t *testing.T) {
	got, err := Deduct("MILK", sampleBatches(), 9, day(0))
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}

	want := []struct {
		id  string
		qty int
	}{
		{"b-today", 3},
		{"b-soon", 4},
		{"b-late", 2},
	}
	if len(got.Allocations) != len(want) {
		t.Fatalf("expected %d allocations, got %+v", len(want), got.Allocations)
	}
	for i, w := range want {
		if got.Allocations[i].BatchID != w.id || got.Allocations[i].Quantity != w.qty {
			t.Fatalf("allocation %d: expected %s x%d, got %+v", i, w.id, w.qty, got.Allocations[i])
		}
	}
}

func TestDeductRejectsWhenLiveStockIsShort(t *testing.T) {
	// 17 live units; the expired batch and the other product do not count.
	_, err := Deduct("MILK", sampleBatches(), 18, day(0))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	var short *InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("expected *InsufficientStockError, got %T", err)
	}
	if short.Available != 17 || short.Requested != 18 {
		t.Fatalf("unexpected shortage detail: %+v", short)
	}
}

func TestDeductRejectsNonPositiveQuantity(t *testing.T) {
	for _, qty := range []int{0, -3} {
		if _, err := Deduct("MILK", sampleBatches(), qty, day(0)); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("qty %d: expected invalid quantity, got %v", qty, err)
		}
	}
}

func TestApplyNeverDrivesBatchNegative(t *testing.T) {
	batches := sampleBatches()
	plan, err := Deduct("MILK", batches, 17, day(0))
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	touched, err := Apply(batches, plan.Allocations)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, batch := range touched {
		if batch.Quantity != 0 {
			t.Fatalf("expected live batch %s drained, got %d", batch.ID, batch.Quantity)
		}
	}

	_, err = Apply(batches, []domain.BatchAllocation{{BatchID: "b-late", SKU: "MILK", Quantity: 1}})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected second apply on drained batch to fail, got %v", err)
	}
}

func TestSummarizeSplitsLiveAndExpiredStock(t *testing.T) {
	view := Summarize(domain.Product{SKU: "MILK"}, sampleBatches()[:5], day(0))
	if view.TotalStock != 17 {
		t.Fatalf("expected 17 live units, got %d", view.TotalStock)
	}
	if view.ExpiredStock != 7 {
		t.Fatalf("expected 7 expired units, got %d", view.ExpiredStock)
	}
	if view.DaysToNearestExpiry == nil || *view.DaysToNearestExpiry != 0 {
		t.Fatalf("expected nearest expiry today, got %v", view.DaysToNearestExpiry)
	}
}

func TestIsExpiredUsesCalendarDays(t *testing.T) {
	batch := domain.StockBatch{ExpiryDate: day(0)}
	if IsExpired(batch, day(0).Add(23*time.Hour)) {
		t.Fatalf("batch expiring today must still be sellable late in the day")
	}
	if !IsExpired(batch, day(1)) {
		t.Fatalf("batch must be expired the next day")
	}
}
