package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
	"stockledger/backend/internal/orderflow"
	"stockledger/backend/internal/store"
)

var (
	today = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	admin = domain.Actor{Username: "admin", Role: domain.RoleAdmin, StoreID: "warehouse"}
	staff = domain.Actor{Username: "inventory", Role: domain.RoleInventory, StoreID: "store-1"}
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	if _, err := s.CreateProduct(ctx, domain.Product{
		SKU:          "MILK",
		Name:         "Milk",
		Category:     "dairy",
		CostPrice:    decimal.RequireFromString("0.80"),
		SellingPrice: decimal.RequireFromString("1.50"),
		TrendScore:   5,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	for _, b := range []domain.StockBatch{
		{ID: "late", StoreID: "store-1", SKU: "MILK", Quantity: 10, ExpiryDate: today.AddDate(0, 0, 20)},
		{ID: "early", StoreID: "store-1", SKU: "MILK", Quantity: 4, ExpiryDate: today.AddDate(0, 0, 3)},
		{ID: "stale", StoreID: "store-1", SKU: "MILK", Quantity: 7, ExpiryDate: today.AddDate(0, 0, -1)},
		{ID: "wh", StoreID: "warehouse", SKU: "MILK", Quantity: 50, ExpiryDate: today.AddDate(0, 0, 90)},
	} {
		b.CreatedAt = today
		if _, err := s.AddBatch(ctx, b); err != nil {
			t.Fatalf("add batch %s: %v", b.ID, err)
		}
	}
	return s
}

func quantities(t *testing.T, s *Store, storeID string) map[string]int {
	t.Helper()
	batches, err := s.ListBatches(context.Background(), storeID, "")
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	result := map[string]int{}
	for _, b := range batches {
		result[b.ID] = b.Quantity
	}
	return result
}

func TestCreateBillDeductsEarliestExpiryFirst(t *testing.T) {
	s := newTestStore(t)

	bill, err := s.CreateBill(context.Background(), domain.Bill{StoreID: "store-1", CreatedBy: "inventory"},
		[]domain.BillLineRequest{{SKU: "MILK", Quantity: 6}}, today)
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if bill.Number != "BILL-000001" {
		t.Fatalf("expected first bill number, got %s", bill.Number)
	}
	if !bill.Total.Equal(decimal.RequireFromString("9.00")) {
		t.Fatalf("expected total 9.00, got %s", bill.Total)
	}
	allocs := bill.Items[0].Allocations
	if len(allocs) != 2 || allocs[0].BatchID != "early" || allocs[0].Quantity != 4 || allocs[1].Quantity != 2 {
		t.Fatalf("expected FEFO allocations early:4 late:2, got %+v", allocs)
	}

	left := quantities(t, s, "store-1")
	if _, ok := left["early"]; ok {
		t.Fatalf("expected early batch exhausted, got %v", left)
	}
	if left["late"] != 8 || left["stale"] != 7 {
		t.Fatalf("unexpected remaining stock: %v", left)
	}
}

func TestCreateBillIsAllOrNothing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateBill(context.Background(), domain.Bill{StoreID: "store-1"},
		[]domain.BillLineRequest{{SKU: "MILK", Quantity: 15}}, today)
	var short *ledger.InsufficientStockError
	if !errors.As(err, &short) || short.Available != 14 {
		t.Fatalf("expected insufficient stock with 14 available, got %v", err)
	}
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected store sentinel to match, got %v", err)
	}
	left := quantities(t, s, "store-1")
	if left["early"] != 4 || left["late"] != 10 {
		t.Fatalf("expected no partial deduction, got %v", left)
	}

	if _, err := s.CreateBill(context.Background(), domain.Bill{StoreID: "store-1"},
		[]domain.BillLineRequest{{SKU: "NOPE", Quantity: 1}}, today); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected unknown product to fail, got %v", err)
	}
}

func TestPurgeExpiredRemovesOnlyExpiredBatches(t *testing.T) {
	s := newTestStore(t)

	purged, err := s.PurgeExpired(context.Background(), today)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if len(purged) != 1 || purged[0].ID != "stale" || purged[0].Quantity != 7 {
		t.Fatalf("expected stale batch purged, got %+v", purged)
	}
	if left := quantities(t, s, "store-1"); len(left) != 2 {
		t.Fatalf("expected two live batches, got %v", left)
	}
}

func TestTransitionOrderMovesWarehouseStockOnApproveAndDeliver(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, domain.OrderRequest{StoreID: "store-1", SKU: "MILK", RequestedQty: 20, RequestedBy: "inventory"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	approved, err := s.TransitionOrder(ctx, order.ID, orderflow.Command{Event: orderflow.EventApprove, Actor: admin, At: today}, "warehouse")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.OrderStatusApproved || len(approved.Allocations) != 1 || approved.Allocations[0].Quantity != 20 {
		t.Fatalf("expected reserved warehouse allocation, got %+v", approved)
	}
	if wh := quantities(t, s, "warehouse"); wh["wh"] != 30 {
		t.Fatalf("expected warehouse reduced to 30, got %v", wh)
	}

	delivered, err := s.TransitionOrder(ctx, order.ID, orderflow.Command{Event: orderflow.EventDeliver, Actor: admin, At: today}, "warehouse")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", delivered.Status)
	}
	credited, err := s.ListBatches(ctx, "store-1", "MILK")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, b := range credited {
		if b.SourceID == order.ID {
			found = true
			if b.Quantity != 20 || !b.ExpiryDate.Equal(today.AddDate(0, 0, 90)) || b.SourceType != domain.BatchSourceTransfer {
				t.Fatalf("unexpected credited batch: %+v", b)
			}
		}
	}
	if !found {
		t.Fatalf("expected credited batch in store-1")
	}

	if _, err := s.TransitionOrder(ctx, order.ID, orderflow.Command{Event: orderflow.EventCancel, Actor: admin}, "warehouse"); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected cancel after delivery to be rejected, got %v", err)
	}
}

func TestTransitionOrderApproveFailsWithoutWarehouseStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, domain.OrderRequest{StoreID: "store-1", SKU: "MILK", RequestedQty: 80})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	_, err = s.TransitionOrder(ctx, order.ID, orderflow.Command{Event: orderflow.EventApprove, Actor: admin, At: today}, "warehouse")
	if orderflow.OutcomeOf(err) != orderflow.OutcomeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	current, _ := s.GetOrder(ctx, order.ID)
	if current.Status != domain.OrderStatusPending {
		t.Fatalf("expected order untouched, got %s", current.Status)
	}
}

func TestTransitionOrderReceiveCreatesBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order, _ := s.CreateOrder(ctx, domain.OrderRequest{StoreID: "store-1", SKU: "MILK", RequestedQty: 5})
	for _, event := range []orderflow.Event{orderflow.EventAcknowledge, orderflow.EventPlaceOrder} {
		if _, err := s.TransitionOrder(ctx, order.ID, orderflow.Command{Event: event, Actor: staff, At: today}, "warehouse"); err != nil {
			t.Fatalf("%s: %v", event, err)
		}
	}
	received, err := s.TransitionOrder(ctx, order.ID, orderflow.Command{Event: orderflow.EventReceive, Actor: staff, Quantity: 8, At: today}, "warehouse")
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if received.ReceivedQty != 8 || received.InventoryAction != domain.InventoryActionOrdered {
		t.Fatalf("unexpected received order: %+v", received)
	}
	batches, _ := s.ListBatches(ctx, "store-1", "MILK")
	total := 0
	for _, b := range batches {
		if b.SourceID == order.ID {
			total += b.Quantity
		}
	}
	if total != 8 {
		t.Fatalf("expected 8 units received, got %d", total)
	}
}

func TestListNotificationsFiltersByRoleAndPages(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i, n := range []domain.Notification{
		{Title: "a", Type: domain.NotificationLowStock, Priority: domain.PriorityUrgent, TargetRole: domain.RoleInventory},
		{Title: "b", Type: domain.NotificationExpiryWarning, Priority: domain.PriorityHigh, TargetRole: domain.RoleAll},
		{Title: "c", Type: domain.NotificationAdminMessage, Priority: domain.PriorityLow, TargetRole: domain.RoleAdmin},
		{Title: "d", Type: domain.NotificationLowStock, Priority: domain.PriorityMedium, TargetRole: domain.RoleInventory},
		{Title: "e", Type: domain.NotificationOrderUpdate, Priority: domain.PriorityMedium, TargetRole: domain.RoleInventory, StoreID: "store-2"},
	} {
		n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := s.CreateNotification(ctx, n); err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	storeOne := domain.NotificationAudience{Roles: []string{domain.RoleInventory, domain.RoleAll}, StoreID: "store-1"}
	page, err := s.ListNotifications(ctx, domain.NotificationFilter{Audience: storeOne, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || page.Items[0].Title != "d" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.UnreadCount != 3 || page.UrgentCount != 1 || page.HighCount != 1 {
		t.Fatalf("unexpected counts: %+v", page)
	}

	inventoryOnly := page.Items[0].ID
	adminFeed := domain.NotificationAudience{Roles: []string{domain.RoleAdmin, domain.RoleAll}}
	if err := s.MarkNotificationRead(ctx, inventoryOnly, adminFeed, time.Now()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected invisible notification to be not found, got %v", err)
	}
	marked, err := s.MarkAllNotificationsRead(ctx, storeOne, time.Now())
	if err != nil || marked != 3 {
		t.Fatalf("expected 3 marked read, got %d (%v)", marked, err)
	}

	storeTwo := domain.NotificationAudience{Roles: []string{domain.RoleInventory, domain.RoleAll}, StoreID: "store-2"}
	other, err := s.ListNotifications(ctx, domain.NotificationFilter{Audience: storeTwo, UnreadOnly: true})
	if err != nil || other.Total != 1 || other.Items[0].Title != "e" {
		t.Fatalf("expected only the store-2 notice left unread for store-2, got %+v (%v)", other, err)
	}

	deleted, err := s.DeleteNotificationsBefore(ctx, base.Add(90*time.Second))
	if err != nil || deleted != 2 {
		t.Fatalf("expected 2 old notifications deleted, got %d (%v)", deleted, err)
	}
}

func TestTrendSignalsCountRecentActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := today.Add(time.Hour)

	if _, err := s.CreateBill(ctx, domain.Bill{StoreID: "store-1", CreatedAt: at}, []domain.BillLineRequest{{SKU: "MILK", Quantity: 2}}, today); err != nil {
		t.Fatalf("bill: %v", err)
	}
	if _, err := s.CreateOrder(ctx, domain.OrderRequest{StoreID: "store-1", SKU: "MILK", RequestedQty: 3, CreatedAt: at}); err != nil {
		t.Fatalf("order: %v", err)
	}
	if _, err := s.CreateBill(ctx, domain.Bill{StoreID: "store-1", CreatedAt: today.AddDate(0, 0, -40)}, []domain.BillLineRequest{{SKU: "MILK", Quantity: 1}}, today); err != nil {
		t.Fatalf("old bill: %v", err)
	}

	signals, err := s.TrendSignals(ctx, today.AddDate(0, 0, -30), today.AddDate(0, 0, -7), today)
	if err != nil {
		t.Fatalf("signals: %v", err)
	}
	sig := signals["MILK"]
	if sig.Sales30d != 1 || sig.Requests30d != 1 || sig.Activity7d != 2 || sig.StockMovements30d != 4 {
		t.Fatalf("unexpected signals: %+v", sig)
	}
}

func TestSeededStoreHasRolesAndLedgerTokens(t *testing.T) {
	s := NewSeeded("warehouse", nil)
	ctx := context.Background()

	for _, username := range []string{"admin", "inventory", "marketing"} {
		user, err := s.GetUser(ctx, username)
		if err != nil {
			t.Fatalf("get %s: %v", username, err)
		}
		if user.LedgerToken == "" {
			t.Fatalf("expected ledger token for %s", username)
		}
		byToken, err := s.GetUserByLedgerToken(ctx, user.LedgerToken)
		if err != nil || byToken.Username != username {
			t.Fatalf("expected token lookup for %s, got %+v (%v)", username, byToken, err)
		}
	}
	if err := s.CreateUser(ctx, domain.UserAccount{Username: "Admin", Password: "x", Role: domain.RoleAdmin}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate username conflict, got %v", err)
	}
	warehouse, _ := s.ListBatches(ctx, "warehouse", "")
	if len(warehouse) == 0 {
		t.Fatalf("expected seeded warehouse stock")
	}
}
