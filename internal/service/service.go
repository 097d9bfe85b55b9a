package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
	"stockledger/backend/internal/notify"
	"stockledger/backend/internal/store"
	"stockledger/backend/internal/trend"
	"stockledger/backend/internal/xid"
)

var ErrForbidden = errors.New("forbidden")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	WarehouseID   string
	PublicBaseURL string
	Logger        *zap.Logger
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

type Service struct {
	repo          store.Repository
	trends        *trend.Engine
	publisher     notify.Publisher
	warehouseID   string
	publicBaseURL string
	logger        *zap.Logger
	clock         func() time.Time
}

func New(repo store.Repository, trends *trend.Engine, publisher notify.Publisher, opts Options) *Service {
	if opts.WarehouseID == "" {
		opts.WarehouseID = "warehouse"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if trends == nil {
		trends = trend.NewEngine(nil, 0, nil, opts.Logger)
	}
	if publisher == nil {
		publisher = notify.Noop{}
	}

	return &Service{
		repo:          repo,
		trends:        trends,
		publisher:     publisher,
		warehouseID:   opts.WarehouseID,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		logger:        opts.Logger,
		clock:         opts.Clock,
	}
}

func (s *Service) WarehouseID() string {
	return s.warehouseID
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) today() time.Time {
	return domain.DateOnly(s.now())
}

// requireRole returns the request actor when it holds one of roles.
func requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Actor{}, ErrForbidden
	}
	if len(roles) > 0 && !slices.Contains(roles, actor.Role) {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

// storeFor resolves which store an actor works on. Admins may name any
// store; everyone else is pinned to their own.
func (s *Service) storeFor(actor domain.Actor, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if actor.Role == domain.RoleAdmin {
		if requested != "" {
			return requested, nil
		}
		if actor.StoreID != "" {
			return actor.StoreID, nil
		}
		return s.warehouseID, nil
	}
	if actor.StoreID == "" {
		return "", ErrForbidden
	}
	if requested != "" && requested != actor.StoreID {
		return "", ErrForbidden
	}
	return actor.StoreID, nil
}

// emit stores a notification and fans it out. Fan-out failures are logged.
func (s *Service) emit(ctx context.Context, n domain.Notification) (*domain.Notification, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	created, err := s.repo.CreateNotification(ctx, n)
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, *created); err != nil {
		s.logger.Warn("notification fan-out failed", zap.String("id", created.ID), zap.Error(err))
	}
	return created, nil
}

func (s *Service) logAudit(ctx context.Context, storeID string, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:         xid.New("audit"),
		StoreID:    storeID,
		Actor:      actor.Username,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  s.now(),
	}); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}

// retailStock sums live quantity per SKU over every store except the warehouse.
func (s *Service) retailStock(ctx context.Context, today time.Time) (map[string]int, []domain.StockBatch, error) {
	batches, err := s.repo.ListBatches(ctx, "", "")
	if err != nil {
		return nil, nil, err
	}
	retail := make([]domain.StockBatch, 0, len(batches))
	totals := map[string]int{}
	for _, b := range batches {
		if b.StoreID == s.warehouseID {
			continue
		}
		retail = append(retail, b)
		if !ledger.IsExpired(b, today) {
			totals[b.SKU] += b.Quantity
		}
	}
	return totals, retail, nil
}

// groupByStore indexes batches by store, then SKU.
func groupByStore(batches []domain.StockBatch) map[string]map[string][]domain.StockBatch {
	grouped := map[string]map[string][]domain.StockBatch{}
	for _, b := range batches {
		if grouped[b.StoreID] == nil {
			grouped[b.StoreID] = map[string][]domain.StockBatch{}
		}
		grouped[b.StoreID][b.SKU] = append(grouped[b.StoreID][b.SKU], b)
	}
	return grouped
}

func groupBySKU(batches []domain.StockBatch) map[string][]domain.StockBatch {
	grouped := map[string][]domain.StockBatch{}
	for _, b := range batches {
		grouped[b.SKU] = append(grouped[b.SKU], b)
	}
	return grouped
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
