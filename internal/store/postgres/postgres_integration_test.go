package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/orderflow"
	"stockledger/backend/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("STOCKLEDGER_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set STOCKLEDGER_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seedProduct(t *testing.T, s *Store, stamp int64) string {
	t.Helper()
	ctx := context.Background()
	sku := fmt.Sprintf("SKU-IT-%d", stamp)
	_, err := s.CreateProduct(ctx, domain.Product{
		SKU:          sku,
		Name:         fmt.Sprintf("Integration Milk %d", stamp),
		Category:     "dairy",
		CostPrice:    decimal.RequireFromString("0.90"),
		SellingPrice: decimal.RequireFromString("1.50"),
		TrendScore:   5,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bill_items WHERE sku = $1`, sku)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bills WHERE store_id LIKE 'store-it-%'`)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_requests WHERE sku = $1`, sku)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stock_batches WHERE sku = $1`, sku)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE sku = $1`, sku)
	})
	return sku
}

func TestCreateBillDeductsEarliestExpiryFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	stamp := time.Now().UnixNano()
	sku := seedProduct(t, s, stamp)
	storeID := fmt.Sprintf("store-it-%d", stamp)
	today := domain.DateOnly(time.Now())

	late, err := s.AddBatch(ctx, domain.StockBatch{StoreID: storeID, SKU: sku, Quantity: 10, ExpiryDate: today.AddDate(0, 0, 30)})
	if err != nil {
		t.Fatalf("add late batch: %v", err)
	}
	early, err := s.AddBatch(ctx, domain.StockBatch{StoreID: storeID, SKU: sku, Quantity: 4, ExpiryDate: today.AddDate(0, 0, 5)})
	if err != nil {
		t.Fatalf("add early batch: %v", err)
	}

	bill, err := s.CreateBill(ctx, domain.Bill{StoreID: storeID, CreatedBy: "it"}, []domain.BillLineRequest{{SKU: sku, Quantity: 6}}, today)
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if !bill.Total.Equal(decimal.RequireFromString("9.00")) {
		t.Fatalf("expected total 9.00, got %s", bill.Total)
	}
	allocs := bill.Items[0].Allocations
	if len(allocs) != 2 || allocs[0].BatchID != early.ID || allocs[0].Quantity != 4 || allocs[1].BatchID != late.ID || allocs[1].Quantity != 2 {
		t.Fatalf("unexpected allocations: %+v", allocs)
	}

	batches, err := s.ListBatches(ctx, storeID, sku)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 1 || batches[0].Quantity != 8 {
		t.Fatalf("expected one batch with 8 left, got %+v", batches)
	}

	stored, err := s.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if stored.Number != bill.Number || len(stored.Items[0].Allocations) != 2 {
		t.Fatalf("stored bill mismatch: %+v", stored)
	}

	_, err = s.CreateBill(ctx, domain.Bill{StoreID: storeID}, []domain.BillLineRequest{{SKU: sku, Quantity: 9}}, today)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestApproveAndDeliverMovesWarehouseStock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	stamp := time.Now().UnixNano()
	sku := seedProduct(t, s, stamp)
	warehouse := fmt.Sprintf("wh-it-%d", stamp)
	storeID := fmt.Sprintf("store-it-%d", stamp)
	today := domain.DateOnly(time.Now())

	if _, err := s.AddBatch(ctx, domain.StockBatch{StoreID: warehouse, SKU: sku, Quantity: 50, ExpiryDate: today.AddDate(0, 0, 90)}); err != nil {
		t.Fatalf("add warehouse batch: %v", err)
	}
	order, err := s.CreateOrder(ctx, domain.OrderRequest{StoreID: storeID, SKU: sku, RequestedQty: 20, RequestedBy: "inventory"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	admin := domain.Actor{Username: "admin", Role: domain.RoleAdmin}
	approved, err := s.TransitionOrder(ctx, order.ID, orderflow.Command{Event: orderflow.EventApprove, Actor: admin}, warehouse)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.OrderStatusApproved || len(approved.Allocations) != 1 {
		t.Fatalf("unexpected approved order: %+v", approved)
	}

	if _, err := s.TransitionOrder(ctx, order.ID, orderflow.Command{Event: orderflow.EventDeliver, Actor: admin}, warehouse); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	warehouseBatches, err := s.ListBatches(ctx, warehouse, sku)
	if err != nil {
		t.Fatalf("list warehouse: %v", err)
	}
	storeBatches, err := s.ListBatches(ctx, storeID, sku)
	if err != nil {
		t.Fatalf("list store: %v", err)
	}
	if warehouseBatches[0].Quantity != 30 {
		t.Fatalf("expected 30 left in warehouse, got %d", warehouseBatches[0].Quantity)
	}
	if len(storeBatches) != 1 || storeBatches[0].Quantity != 20 || storeBatches[0].SourceType != domain.BatchSourceTransfer {
		t.Fatalf("unexpected store batches: %+v", storeBatches)
	}
}
