package service

import (
	"context"
	"slices"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/notify"
	"stockledger/backend/internal/trend"
)

func (s *Service) InventoryDashboard(ctx context.Context) (domain.InventoryDashboard, error) {
	actor, err := requireRole(ctx, domain.RoleInventory, domain.RoleAdmin)
	if err != nil {
		return domain.InventoryDashboard{}, err
	}
	storeID, err := s.storeFor(actor, "")
	if err != nil {
		return domain.InventoryDashboard{}, err
	}

	products, err := s.productStock(ctx, storeID)
	if err != nil {
		return domain.InventoryDashboard{}, err
	}
	batches, err := s.repo.ListBatches(ctx, storeID, "")
	if err != nil {
		return domain.InventoryDashboard{}, err
	}
	slices.SortFunc(batches, func(a, b domain.StockBatch) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(batches) > 10 {
		batches = batches[:10]
	}
	page, err := s.repo.ListNotifications(ctx, domain.NotificationFilter{
		Audience:   notify.AudienceFor(actor),
		UnreadOnly: true,
		Limit:      10,
	})
	if err != nil {
		return domain.InventoryDashboard{}, err
	}
	page.Page, page.PageSize = 1, 10

	return domain.InventoryDashboard{
		StoreID:       storeID,
		Products:      products,
		RecentBatches: batches,
		Notifications: page,
		GeneratedAt:   s.now(),
	}, nil
}

func (s *Service) AdminDashboard(ctx context.Context) (domain.AdminDashboard, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.AdminDashboard{}, err
	}

	stock, err := s.productStock(ctx, "")
	if err != nil {
		return domain.AdminDashboard{}, err
	}
	dash := domain.AdminDashboard{GeneratedAt: s.now()}
	dash.StockAnalysis = make([]domain.StockAnalysisRow, 0, len(stock))
	for _, p := range stock {
		condition := trend.Condition(p.TrendScore, p.TotalStock, p.DaysToNearestExpiry)
		switch condition {
		case domain.ConditionOverstock:
			dash.OverstockCount++
		case domain.ConditionReorder:
			dash.ReorderCount++
		case domain.ConditionNearExpiry:
			dash.NearExpiryCount++
		}
		dash.StockAnalysis = append(dash.StockAnalysis, domain.StockAnalysisRow{
			SKU:                 p.SKU,
			Name:                p.Name,
			TotalStock:          p.TotalStock,
			TrendScore:          p.TrendScore,
			DaysToNearestExpiry: p.DaysToNearestExpiry,
			Condition:           condition,
		})
	}

	orders, err := s.repo.ListOrders(ctx, domain.OrderFilter{})
	if err != nil {
		return domain.AdminDashboard{}, err
	}
	for _, o := range orders {
		countOrder(&dash.OrderCounts, o.Status)
	}
	dash.Orders = orders
	if len(dash.Orders) > 20 {
		dash.Orders = dash.Orders[:20]
	}

	sent, err := s.repo.ListNotificationsByCreator(ctx, actor.Username, 100)
	if err != nil {
		return domain.AdminDashboard{}, err
	}
	dash.TotalSent = len(sent)
	for _, n := range sent {
		if n.IsRead {
			dash.ReadSent++
		} else {
			dash.UnreadSent++
		}
	}
	dash.SentNotifications = sent
	if len(dash.SentNotifications) > 10 {
		dash.SentNotifications = dash.SentNotifications[:10]
	}
	return dash, nil
}

func countOrder(counts *domain.OrderStatusCounts, status string) {
	switch status {
	case domain.OrderStatusPending:
		counts.Pending++
	case domain.OrderStatusAcknowledged:
		counts.Acknowledged++
	case domain.OrderStatusApproved:
		counts.Approved++
	case domain.OrderStatusOrdered:
		counts.Ordered++
	case domain.OrderStatusDelivered:
		counts.Delivered++
	case domain.OrderStatusReceived:
		counts.Received++
	case domain.OrderStatusCompleted:
		counts.Completed++
	case domain.OrderStatusCancelled:
		counts.Cancelled++
	}
}
