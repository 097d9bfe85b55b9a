package service

import (
	"context"
	"fmt"
	"strings"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
	"stockledger/backend/internal/notify"
	"stockledger/backend/internal/store"
	"stockledger/backend/internal/trend"
)

const (
	defaultNotificationPageSize = 20
	maxNotificationOffset       = 1_000_000
)

type NotificationQuery struct {
	Type string
	// Status is "unread", "read" or empty for both.
	Status   string
	Page     int
	PageSize int
}

// ListNotifications pages through the notifications visible to the actor's role.
func (s *Service) ListNotifications(ctx context.Context, q NotificationQuery) (domain.NotificationPage, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.NotificationPage{}, err
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = defaultNotificationPageSize
	}

	page, err := s.repo.ListNotifications(ctx, domain.NotificationFilter{
		Audience:   notify.AudienceFor(actor),
		Type:       strings.TrimSpace(q.Type),
		UnreadOnly: q.Status == "unread",
		ReadOnly:   q.Status == "read",
		Offset:     pageOffset(q.Page, q.PageSize),
		Limit:      q.PageSize,
	})
	if err != nil {
		return domain.NotificationPage{}, err
	}
	page.Page = q.Page
	page.PageSize = q.PageSize
	return page, nil
}

// pageOffset is (page-1)*size, capped so huge page numbers cannot overflow.
func pageOffset(page, size int) int {
	if page <= 1 || size <= 0 {
		return 0
	}
	if page-1 > maxNotificationOffset/size {
		return maxNotificationOffset
	}
	return (page - 1) * size
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	actor, err := requireRole(ctx)
	if err != nil {
		return err
	}
	return s.repo.MarkNotificationRead(ctx, id, notify.AudienceFor(actor), s.now())
}

func (s *Service) MarkAllRead(ctx context.Context) (int, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return 0, err
	}
	return s.repo.MarkAllNotificationsRead(ctx, notify.AudienceFor(actor), s.now())
}

func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.DeleteNotification(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "", "notification_delete", "notification", id, "")
	return nil
}

// SendAdminNotification sends inventory staff a message about a product,
// enriched with its live stock and trend score.
func (s *Service) SendAdminNotification(ctx context.Context, req domain.AdminNotificationRequest) (domain.Notification, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.Notification{}, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Recommendation = strings.TrimSpace(req.Recommendation)
	kind := defaultString(req.Type, domain.NotificationAdminMessage)
	priority := defaultString(req.Priority, domain.PriorityMedium)
	if req.Title == "" || !domain.ValidNotificationType(kind) || !domain.ValidPriority(priority) {
		return domain.Notification{}, fmt.Errorf("%w: title, type and priority are required", store.ErrInvalidInput)
	}

	n := domain.Notification{
		Title:      req.Title,
		Type:       kind,
		Priority:   priority,
		TargetRole: domain.RoleInventory,
		CreatedBy:  actor.Username,
	}

	var b strings.Builder
	if name := strings.TrimSpace(req.ProductName); name != "" {
		product, err := s.repo.GetProductByName(ctx, name)
		if err != nil {
			return domain.Notification{}, err
		}
		batches, err := s.repo.ListBatches(ctx, "", product.SKU)
		if err != nil {
			return domain.Notification{}, err
		}
		view := ledger.Summarize(*product, batches, s.today())
		n.SKU = product.SKU

		fmt.Fprintf(&b, "Product: %s (%s)\n", product.Name, defaultString(req.Category, product.Category))
		fmt.Fprintf(&b, "Current stock: %d units\n", view.TotalStock)
		fmt.Fprintf(&b, "Trend score: %.1f (class %s)\n", product.TrendScore, trend.Classify(product.TrendScore))
		if view.DaysToNearestExpiry != nil {
			fmt.Fprintf(&b, "Nearest expiry: %d days\n", *view.DaysToNearestExpiry)
		}
	} else if req.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", strings.TrimSpace(req.Category))
	}
	if req.Recommendation != "" {
		fmt.Fprintf(&b, "Recommendation: %s\n", req.Recommendation)
	}
	n.Message = strings.TrimSpace(b.String())

	created, err := s.emit(ctx, n)
	if err != nil {
		return domain.Notification{}, err
	}
	s.logAudit(ctx, "", "notification_send", "notification", created.ID, fmt.Sprintf("type=%s,priority=%s,sku=%s", created.Type, created.Priority, created.SKU))
	return *created, nil
}
