package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
)

const (
	notificationRetention = 7 * 24 * time.Hour
	expiryWarningDays     = 15
	lowStockThreshold     = 20
	criticalStockLevel    = 5
)

// TriggerMaintenance runs the maintenance sweep on an admin's request.
func (s *Service) TriggerMaintenance(ctx context.Context) (domain.MaintenanceReport, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.MaintenanceReport{}, err
	}
	return s.RunMaintenance(ctx)
}

// RunMaintenance purges expired stock, prunes old notifications, raises
// expiry and low stock warnings, then refreshes trend scores.
func (s *Service) RunMaintenance(ctx context.Context) (domain.MaintenanceReport, error) {
	report := domain.MaintenanceReport{RanAt: s.now()}

	purged, qty, err := s.purgeExpired(ctx)
	if err != nil {
		return report, fmt.Errorf("purge expired: %w", err)
	}
	report.PurgedBatches, report.PurgedQuantity = purged, qty

	deleted, err := s.repo.DeleteNotificationsBefore(ctx, s.now().Add(-notificationRetention))
	if err != nil {
		return report, fmt.Errorf("prune notifications: %w", err)
	}
	report.DeletedNotifications = deleted

	if report.ExpiryWarnings, report.LowStockWarnings, err = s.GenerateNotifications(ctx); err != nil {
		return report, fmt.Errorf("generate notifications: %w", err)
	}

	refresh, err := s.RefreshTrendScores(ctx)
	if err != nil {
		return report, fmt.Errorf("refresh trend scores: %w", err)
	}
	report.TrendUpdates = refresh.Updated

	s.logger.Info("maintenance finished",
		zap.Int("purged_batches", report.PurgedBatches),
		zap.Int("purged_quantity", report.PurgedQuantity),
		zap.Int("deleted_notifications", report.DeletedNotifications),
		zap.Int("expiry_warnings", report.ExpiryWarnings),
		zap.Int("low_stock_warnings", report.LowStockWarnings),
		zap.Int("trend_updates", report.TrendUpdates),
	)
	s.logAudit(ctx, "", "maintenance_run", "system", "maintenance", fmt.Sprintf("purged=%d,warnings=%d", report.PurgedBatches, report.ExpiryWarnings+report.LowStockWarnings))
	return report, nil
}

// purgeExpired removes expired batches and announces each one. A product
// left with no live retail stock gets an URGENT REORDER. Warehouse stock is
// not counted.
func (s *Service) purgeExpired(ctx context.Context) (int, int, error) {
	today := s.today()
	removed, err := s.repo.PurgeExpired(ctx, today)
	if err != nil {
		return 0, 0, err
	}
	if len(removed) == 0 {
		return 0, 0, nil
	}

	names := s.productNames(ctx)
	qty := 0
	touched := make([]string, 0, len(removed))
	for _, b := range removed {
		qty += b.Quantity
		if !slices.Contains(touched, b.SKU) {
			touched = append(touched, b.SKU)
		}
		s.emitLogged(ctx, domain.Notification{
			Title:      "EXPIRED REMOVED: " + names.of(b.SKU),
			Message:    fmt.Sprintf("Removed %d expired units (expired %s) from %s.", b.Quantity, b.ExpiryDate.Format(time.DateOnly), b.StoreID),
			Type:       domain.NotificationExpiryWarning,
			Priority:   domain.PriorityHigh,
			TargetRole: domain.RoleAll,
			StoreID:    b.StoreID,
			SKU:        b.SKU,
		})
	}

	stock, _, err := s.retailStock(ctx, today)
	if err != nil {
		return len(removed), qty, err
	}
	for _, sku := range touched {
		if stock[sku] > 0 {
			continue
		}
		s.emitLogged(ctx, domain.Notification{
			Title:      "URGENT REORDER: " + names.of(sku),
			Message:    fmt.Sprintf("%s has no retail stock left in any store after expired batches were removed (warehouse stock not counted).", names.of(sku)),
			Type:       domain.NotificationLowStock,
			Priority:   domain.PriorityUrgent,
			TargetRole: domain.RoleAll,
			SKU:        sku,
		})
	}
	return len(removed), qty, nil
}

// GenerateNotifications raises expiry warnings per store and chain-wide low
// stock warnings for retail stock, at most one of each kind per product,
// store and day.
func (s *Service) GenerateNotifications(ctx context.Context) (int, int, error) {
	today := s.today()
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return 0, 0, err
	}
	stock, batches, err := s.retailStock(ctx, today)
	if err != nil {
		return 0, 0, err
	}
	byStore := groupByStore(batches)
	storeIDs := slices.Sorted(maps.Keys(byStore))

	expiryWarnings, lowStockWarnings := 0, 0
	for _, p := range products {
		for _, storeID := range storeIDs {
			nearest, ok := ledger.NearestExpiry(byStore[storeID][p.SKU], today)
			if !ok {
				continue
			}
			days := ledger.DaysUntil(nearest, today)
			if days > expiryWarningDays {
				continue
			}
			sent, err := s.emitOncePerDay(ctx, today, domain.Notification{
				Title:      fmt.Sprintf("Expiring soon: %s", p.Name),
				Message:    fmt.Sprintf("%d units of %s expire in %d days (%s) at %s.", nearest.Quantity, p.Name, days, nearest.ExpiryDate.Format(time.DateOnly), storeID),
				Type:       domain.NotificationExpiryWarning,
				Priority:   expiryPriority(days),
				TargetRole: domain.RoleInventory,
				StoreID:    storeID,
				SKU:        p.SKU,
			})
			if err != nil {
				return expiryWarnings, lowStockWarnings, err
			}
			if sent {
				expiryWarnings++
			}
		}

		qty := stock[p.SKU]
		if qty >= lowStockThreshold {
			continue
		}
		title, priority := lowStockNotice(p.Name, qty)
		sent, err := s.emitOncePerDay(ctx, today, domain.Notification{
			Title:      title,
			Message:    fmt.Sprintf("%s has %d units left across stores.", p.Name, qty),
			Type:       domain.NotificationLowStock,
			Priority:   priority,
			TargetRole: domain.RoleInventory,
			SKU:        p.SKU,
		})
		if err != nil {
			return expiryWarnings, lowStockWarnings, err
		}
		if sent {
			lowStockWarnings++
		}
	}
	return expiryWarnings, lowStockWarnings, nil
}

func expiryPriority(days int) string {
	switch {
	case days <= 3:
		return domain.PriorityUrgent
	case days <= 7:
		return domain.PriorityHigh
	default:
		return domain.PriorityMedium
	}
}

func lowStockNotice(name string, qty int) (string, string) {
	switch {
	case qty == 0:
		return "OUT OF STOCK: " + name, domain.PriorityUrgent
	case qty < criticalStockLevel:
		return "CRITICAL LOW: " + name, domain.PriorityHigh
	default:
		return "Low Stock: " + name, domain.PriorityMedium
	}
}

func (s *Service) emitOncePerDay(ctx context.Context, today time.Time, n domain.Notification) (bool, error) {
	exists, err := s.repo.NotificationExists(ctx, n.SKU, n.Type, n.TargetRole, n.StoreID, today)
	if err != nil || exists {
		return false, err
	}
	if _, err := s.emit(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) emitLogged(ctx context.Context, n domain.Notification) {
	if _, err := s.emit(ctx, n); err != nil {
		s.logger.Warn("notification failed", zap.String("title", n.Title), zap.Error(err))
	}
}

type nameIndex map[string]string

func (n nameIndex) of(sku string) string {
	if name, ok := n[sku]; ok {
		return name
	}
	return sku
}

func (s *Service) productNames(ctx context.Context) nameIndex {
	names := nameIndex{}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		s.logger.Warn("failed to load product names", zap.Error(err))
		return names
	}
	for _, p := range products {
		names[p.SKU] = p.Name
	}
	return names
}

// RunMaintenanceLoop runs RunMaintenance every interval until ctx ends.
func (s *Service) RunMaintenanceLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunMaintenance(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("maintenance run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
