// Package notify fans new notifications out to live dashboards and to the
// event stream. Delivery is best effort; the notification row in the store
// is the source of truth.
package notify

import (
	"context"
	"errors"

	"stockledger/backend/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

type Noop struct{}

func (Noop) Publish(_ context.Context, _ domain.Notification) error {
	return nil
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AudienceFor is the feed an actor reads: their role plus broadcasts, and
// for store staff only notifications about their own store.
func AudienceFor(actor domain.Actor) domain.NotificationAudience {
	audience := domain.NotificationAudience{Roles: []string{actor.Role, domain.RoleAll}}
	if actor.Role != domain.RoleAdmin {
		audience.StoreID = actor.StoreID
	}
	return audience
}
