package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
	"stockledger/backend/internal/orderflow"
	"stockledger/backend/internal/store"
	"stockledger/backend/internal/trend"
	"stockledger/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	batches         []domain.StockBatch
	bills           []domain.Bill
	billSeq         int64
	orders          map[string]domain.OrderRequest
	notifications   []domain.Notification
	recommendations map[string]domain.Recommendation
	stores          map[string]domain.Store
	users           map[string]domain.UserAccount
	auditLogs       []domain.AuditLog
}

// New returns an empty store.
func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		batches:         make([]domain.StockBatch, 0, 64),
		bills:           make([]domain.Bill, 0, 64),
		orders:          make(map[string]domain.OrderRequest),
		notifications:   make([]domain.Notification, 0, 64),
		recommendations: make(map[string]domain.Recommendation),
		stores:          make(map[string]domain.Store),
		users:           make(map[string]domain.UserAccount),
		auditLogs:       make([]domain.AuditLog, 0, 128),
	}
}

// NewSeeded returns a store with demo products, batches and users.
func NewSeeded(warehouseID string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now().UTC()
	s := New()
	products := seedProducts(now)
	for _, p := range products {
		s.products[p.SKU] = p
	}
	s.batches = append(s.batches, seedBatches(warehouseID, products, now)...)
	for _, st := range seedStores(warehouseID, now) {
		s.stores[st.ID] = st
	}
	s.users = seedUsers(warehouseID, logger)
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, compareProducts)
	return products, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) GetProductByName(_ context.Context, name string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name = strings.TrimSpace(name)
	for _, p := range s.products {
		if p.Active && strings.EqualFold(p.Name, name) {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SearchProducts(_ context.Context, query string, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 10
	}
	query = strings.ToLower(strings.TrimSpace(query))
	result := make([]domain.Product, 0, limit)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), query) || strings.HasPrefix(strings.ToLower(p.SKU), query) {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, b domain.Product) int { return strings.Compare(a.Name, b.Name) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || !product.SellingPrice.IsPositive() || product.CostPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.SKU]; exists {
		return nil, store.ErrConflict
	}
	for _, p := range s.products {
		if strings.EqualFold(p.Name, product.Name) {
			return nil, store.ErrConflict
		}
	}
	if product.CurrentPrice.IsZero() {
		product.CurrentPrice = product.SellingPrice
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.ABCClass = trend.Classify(product.TrendScore)
	product.Active = true
	s.products[product.SKU] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProductPricing(_ context.Context, sku string, currentPrice decimal.Decimal, discountPercent float64) (*domain.Product, error) {
	if currentPrice.IsNegative() || discountPercent < 0 || discountPercent > 100 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.CurrentPrice = currentPrice
	product.DiscountPercent = discountPercent
	s.products[sku] = product
	return &product, nil
}

func (s *Store) UpdateTrendScore(_ context.Context, sku string, score float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[sku]
	if !exists {
		return store.ErrNotFound
	}
	product.TrendScore = score
	product.ABCClass = trend.Classify(score)
	stamp := at.UTC()
	product.LastTrendUpdate = &stamp
	s.products[sku] = product
	return nil
}

func (s *Store) AddBatch(_ context.Context, batch domain.StockBatch) (*domain.StockBatch, error) {
	if batch.StoreID == "" || batch.SKU == "" || batch.Quantity < 1 || batch.ExpiryDate.IsZero() {
		return nil, store.ErrInvalidInput
	}
	if batch.ID == "" {
		batch.ID = xid.New("bat")
	}
	if batch.SourceType == "" {
		batch.SourceType = domain.BatchSourceManual
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	batch.ExpiryDate = domain.DateOnly(batch.ExpiryDate)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[batch.SKU]; !exists {
		return nil, store.ErrNotFound
	}
	s.batches = append(s.batches, batch)
	created := batch
	return &created, nil
}

func (s *Store) ListBatches(_ context.Context, storeID string, sku string) ([]domain.StockBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockBatch, 0, 32)
	for _, b := range s.batches {
		if b.Quantity < 1 {
			continue
		}
		if storeID != "" && b.StoreID != storeID {
			continue
		}
		if sku != "" && b.SKU != sku {
			continue
		}
		result = append(result, b)
	}
	slices.SortFunc(result, ledger.CompareFEFO)
	return result, nil
}

func (s *Store) PurgeExpired(_ context.Context, today time.Time) ([]domain.StockBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := make([]domain.StockBatch, 0)
	kept := s.batches[:0]
	for _, b := range s.batches {
		if ledger.IsExpired(b, today) {
			if b.Quantity > 0 {
				purged = append(purged, b)
			}
			continue
		}
		kept = append(kept, b)
	}
	s.batches = kept
	slices.SortFunc(purged, ledger.CompareFEFO)
	return purged, nil
}

func (s *Store) CreateBill(_ context.Context, bill domain.Bill, lines []domain.BillLineRequest, today time.Time) (*domain.Bill, error) {
	if bill.StoreID == "" || len(lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working, positions := s.storeBatches(bill.StoreID)
	items := make([]domain.BillItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		product, exists := s.products[line.SKU]
		if !exists || !product.Active {
			return nil, store.ErrNotFound
		}
		deduction, err := ledger.Deduct(line.SKU, working, line.Quantity, today)
		if err != nil {
			return nil, err
		}
		if _, err := ledger.Apply(working, deduction.Allocations); err != nil {
			return nil, err
		}
		lineTotal := product.CurrentPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		items = append(items, domain.BillItem{
			SKU:         product.SKU,
			Name:        product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.CurrentPrice,
			LineTotal:   lineTotal,
			Allocations: deduction.Allocations,
		})
		total = total.Add(lineTotal)
	}
	s.writeBack(working, positions)

	s.billSeq++
	if bill.ID == "" {
		bill.ID = xid.New("bill")
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	if bill.Source == "" {
		bill.Source = domain.BillSourceCounter
	}
	bill.Number = store.BillNumber(s.billSeq)
	bill.Items = items
	bill.Total = total
	s.bills = append(s.bills, bill)
	created := cloneBill(bill)
	return &created, nil
}

func (s *Store) GetBill(_ context.Context, id string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bills {
		if b.ID == id {
			found := cloneBill(b)
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListBills(_ context.Context, storeID string, since time.Time, limit int) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Bill, 0, 16)
	for i := len(s.bills) - 1; i >= 0; i-- {
		b := s.bills[i]
		if storeID != "" && b.StoreID != storeID {
			continue
		}
		if b.CreatedAt.Before(since) {
			continue
		}
		result = append(result, cloneBill(b))
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) SalesTotals(_ context.Context, storeID string, from time.Time, to time.Time) (int, decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	amount := decimal.Zero
	for _, b := range s.bills {
		if storeID != "" && b.StoreID != storeID {
			continue
		}
		if b.CreatedAt.Before(from) || !b.CreatedAt.Before(to) {
			continue
		}
		count++
		amount = amount.Add(b.Total)
	}
	return count, amount, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.OrderRequest) (*domain.OrderRequest, error) {
	if order.StoreID == "" || order.SKU == "" || order.RequestedQty < 1 {
		return nil, store.ErrInvalidInput
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	order.Status = domain.OrderStatusPending
	order.InventoryAction = domain.InventoryActionNone

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[order.SKU]; !exists {
		return nil, store.ErrNotFound
	}
	s.orders[order.ID] = order
	created := cloneOrder(order)
	return &created, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*domain.OrderRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := cloneOrder(order)
	return &found, nil
}

func (s *Store) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.OrderRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.OrderRequest, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.StoreID != "" && o.StoreID != filter.StoreID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.OpenOnly && orderflow.Terminal(o.Status) {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	slices.SortFunc(result, func(a, b domain.OrderRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) TransitionOrder(_ context.Context, id string, cmd orderflow.Command, warehouseStoreID string) (*domain.OrderRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.orders[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	plan, err := orderflow.Prepare(order, cmd)
	if err != nil {
		return nil, err
	}
	at := plan.Order.UpdatedAt

	switch {
	case plan.WarehouseQty > 0:
		working, positions := s.storeBatches(warehouseStoreID)
		deduction, err := ledger.Deduct(order.SKU, working, plan.WarehouseQty, at)
		if err != nil {
			return nil, err
		}
		if _, err := ledger.Apply(working, deduction.Allocations); err != nil {
			return nil, err
		}
		s.writeBack(working, positions)
		plan.Order.Allocations = deduction.Allocations
	case len(plan.CreditStore) > 0:
		for _, alloc := range plan.CreditStore {
			s.batches = append(s.batches, domain.StockBatch{
				ID:         xid.New("bat"),
				StoreID:    order.StoreID,
				SKU:        alloc.SKU,
				Quantity:   alloc.Quantity,
				ExpiryDate: domain.DateOnly(alloc.ExpiryDate),
				SourceType: domain.BatchSourceTransfer,
				SourceID:   order.ID,
				CreatedAt:  at,
			})
		}
	case plan.ReceiveQty > 0:
		s.batches = append(s.batches, domain.StockBatch{
			ID:         xid.New("bat"),
			StoreID:    order.StoreID,
			SKU:        order.SKU,
			Quantity:   plan.ReceiveQty,
			ExpiryDate: plan.ReceiveExpiry,
			SourceType: domain.BatchSourceOrder,
			SourceID:   order.ID,
			CreatedAt:  at,
		})
	}

	s.orders[id] = plan.Order
	updated := cloneOrder(plan.Order)
	return &updated, nil
}

func (s *Store) CreateNotification(_ context.Context, n domain.Notification) (*domain.Notification, error) {
	if strings.TrimSpace(n.Title) == "" || !domain.ValidNotificationType(n.Type) || !domain.ValidPriority(n.Priority) {
		return nil, store.ErrInvalidInput
	}
	if n.TargetRole == "" {
		n.TargetRole = domain.RoleAll
	}
	if n.ID == "" {
		n.ID = xid.New("ntf")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.UpdatedAt = n.CreatedAt

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, n)
	created := n
	return &created, nil
}

func (s *Store) ListNotifications(_ context.Context, filter domain.NotificationFilter) (domain.NotificationPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	page := domain.NotificationPage{Items: []domain.Notification{}}
	matched := make([]domain.Notification, 0, 32)
	for _, n := range s.notifications {
		if !filter.Audience.Sees(n) {
			continue
		}
		if n.ExpiresAt != nil && n.ExpiresAt.Before(now) {
			continue
		}
		if !n.IsRead {
			page.UnreadCount++
			switch n.Priority {
			case domain.PriorityUrgent:
				page.UrgentCount++
			case domain.PriorityHigh:
				page.HighCount++
			}
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		if filter.ReadOnly && !n.IsRead {
			continue
		}
		matched = append(matched, n)
	}
	slices.SortFunc(matched, compareNotifications)

	page.Total = len(matched)
	start := min(max(filter.Offset, 0), len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	page.Items = append(page.Items, matched[start:end]...)
	return page, nil
}

func (s *Store) ListNotificationsByCreator(_ context.Context, createdBy string, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Notification, 0, 16)
	for _, n := range s.notifications {
		if n.CreatedBy == createdBy {
			result = append(result, n)
		}
	}
	slices.SortFunc(result, compareNotifications)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string, audience domain.NotificationAudience, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID != id {
			continue
		}
		if !audience.Sees(n) {
			return store.ErrNotFound
		}
		s.notifications[i].IsRead = true
		s.notifications[i].UpdatedAt = at
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, audience domain.NotificationAudience, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for i, n := range s.notifications {
		if n.IsRead || !audience.Sees(n) {
			continue
		}
		s.notifications[i].IsRead = true
		s.notifications[i].UpdatedAt = at
		updated++
	}
	return updated, nil
}

func (s *Store) DeleteNotification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = slices.Delete(s.notifications, i, i+1)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeleteNotificationsBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.notifications)
	s.notifications = slices.DeleteFunc(s.notifications, func(n domain.Notification) bool {
		return n.CreatedAt.Before(cutoff)
	})
	return before - len(s.notifications), nil
}

func (s *Store) NotificationExists(_ context.Context, sku string, kind string, targetRole string, storeID string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications {
		if n.SKU == sku && n.Type == kind && n.TargetRole == targetRole && n.StoreID == storeID && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SaveRecommendation(_ context.Context, rec domain.Recommendation) (*domain.Recommendation, error) {
	if rec.SKU == "" || rec.Type == "" {
		return nil, store.ErrInvalidInput
	}
	if rec.ID == "" {
		rec.ID = xid.New("rec")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = domain.RecommendationPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recommendations[rec.ID] = rec
	saved := rec
	return &saved, nil
}

func (s *Store) DismissRecommendations(_ context.Context, sku string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dismissed := 0
	for id, rec := range s.recommendations {
		if rec.SKU != sku || rec.Status != domain.RecommendationPending {
			continue
		}
		rec.Status = domain.RecommendationDismissed
		s.recommendations[id] = rec
		dismissed++
	}
	return dismissed, nil
}

func (s *Store) ListRecommendations(_ context.Context, sku string, status string, limit int) ([]domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Recommendation, 0, 16)
	for _, rec := range s.recommendations {
		if sku != "" && rec.SKU != sku {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		result = append(result, rec)
	}
	slices.SortFunc(result, func(a, b domain.Recommendation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) TrendSignals(_ context.Context, since30 time.Time, since7 time.Time, today time.Time) (map[string]domain.TrendSignals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	signals := make(map[string]domain.TrendSignals, len(s.products))
	for sku, p := range s.products {
		if p.Active {
			signals[sku] = domain.TrendSignals{SKU: sku}
		}
	}
	update := func(sku string, fn func(*domain.TrendSignals)) {
		sig, ok := signals[sku]
		if !ok {
			return
		}
		fn(&sig)
		signals[sku] = sig
	}

	live := ledger.Available(s.batches, today)
	for _, b := range live {
		update(b.SKU, func(sig *domain.TrendSignals) { sig.Stock += b.Quantity })
	}
	for _, b := range s.batches {
		if !b.CreatedAt.Before(since30) {
			update(b.SKU, func(sig *domain.TrendSignals) { sig.StockMovements30d++ })
		}
	}
	for _, bill := range s.bills {
		if bill.CreatedAt.Before(since30) {
			continue
		}
		recent := !bill.CreatedAt.Before(since7)
		for _, item := range bill.Items {
			update(item.SKU, func(sig *domain.TrendSignals) {
				sig.Sales30d++
				if recent {
					sig.Activity7d++
				}
			})
		}
	}
	for _, o := range s.orders {
		if o.CreatedAt.Before(since30) {
			continue
		}
		recent := !o.CreatedAt.Before(since7)
		update(o.SKU, func(sig *domain.TrendSignals) {
			sig.Requests30d++
			if recent {
				sig.Activity7d++
			}
		})
	}
	return signals, nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByLedgerToken(_ context.Context, token string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if token == "" {
		return nil, store.ErrNotFound
	}
	for _, user := range s.users {
		if user.LedgerToken == token && user.Active {
			found := user
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int { return strings.Compare(a.Username, b.Username) })
	return users, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" || !domain.ValidRole(user.Role) {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return store.ErrConflict
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListStores(_ context.Context) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Store, 0, len(s.stores))
	for _, st := range s.stores {
		result = append(result, st)
	}
	slices.SortFunc(result, func(a, b domain.Store) int { return strings.Compare(a.ID, b.ID) })
	return result, nil
}

func (s *Store) GetStore(_ context.Context, id string) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[strings.TrimSpace(id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &st, nil
}

func (s *Store) CreateStore(_ context.Context, st domain.Store) (*domain.Store, error) {
	if st.ID == "" || st.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	st.UpdatedAt = st.CreatedAt

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stores[st.ID]; exists {
		return nil, store.ErrConflict
	}
	s.stores[st.ID] = st
	created := st
	return &created, nil
}

func (s *Store) UpdateStore(_ context.Context, st domain.Store) (*domain.Store, error) {
	if st.ID == "" || st.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.stores[st.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	st.CreatedAt = current.CreatedAt
	st.Warehouse = current.Warehouse
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	s.stores[st.ID] = st
	updated := st
	return &updated, nil
}

func (s *Store) DeleteStore(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[id]; !ok {
		return store.ErrNotFound
	}
	for _, u := range s.users {
		if u.StoreID == id {
			return store.ErrConflict
		}
	}
	for _, b := range s.batches {
		if b.StoreID == id && b.Quantity > 0 {
			return store.ErrConflict
		}
	}
	delete(s.stores, id)
	return nil
}

func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if _, exists := s.users[username]; !exists {
		return store.ErrNotFound
	}
	delete(s.users, username)
	return nil
}

func (s *Store) UpdateLedgerToken(_ context.Context, username string, token string) error {
	if token == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	user, exists := s.users[username]
	if !exists {
		return store.ErrNotFound
	}
	user.LedgerToken = token
	s.users[username] = user
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, storeID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(result) < limit; i-- {
		entry := s.auditLogs[i]
		if storeID != "" && entry.StoreID != storeID {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

// storeBatches copies the batches of storeID so a deduction can be planned
// and applied without touching live state until every line succeeds.
func (s *Store) storeBatches(storeID string) ([]domain.StockBatch, []int) {
	working := make([]domain.StockBatch, 0, 16)
	positions := make([]int, 0, 16)
	for i, b := range s.batches {
		if b.StoreID == storeID {
			working = append(working, b)
			positions = append(positions, i)
		}
	}
	return working, positions
}

func (s *Store) writeBack(working []domain.StockBatch, positions []int) {
	for i, pos := range positions {
		s.batches[pos] = working[i]
	}
}

func compareProducts(a, b domain.Product) int {
	if a.Category == b.Category {
		return strings.Compare(a.Name, b.Name)
	}
	return strings.Compare(a.Category, b.Category)
}

func compareNotifications(a, b domain.Notification) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

func cloneBill(src domain.Bill) domain.Bill {
	dup := src
	dup.Items = make([]domain.BillItem, len(src.Items))
	for i, item := range src.Items {
		item.Allocations = slices.Clone(item.Allocations)
		dup.Items[i] = item
	}
	return dup
}

func cloneOrder(src domain.OrderRequest) domain.OrderRequest {
	dup := src
	dup.Allocations = slices.Clone(src.Allocations)
	return dup
}
