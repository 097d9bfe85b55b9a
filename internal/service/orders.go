package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/importer"
	"stockledger/backend/internal/orderflow"
	"stockledger/backend/internal/store"
)

// CreateOrderRequest files a restock request from a store to the warehouse.
// Inventory staff request for their own store; admins name the store.
func (s *Service) CreateOrderRequest(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderRequest, error) {
	actor, err := requireRole(ctx, domain.RoleInventory, domain.RoleAdmin)
	if err != nil {
		return domain.OrderRequest{}, err
	}
	storeID, err := s.storeFor(actor, req.StoreID)
	if err != nil {
		return domain.OrderRequest{}, err
	}
	if storeID == s.warehouseID {
		return domain.OrderRequest{}, fmt.Errorf("%w: the warehouse cannot request from itself", store.ErrInvalidInput)
	}
	if req.Quantity < 1 {
		return domain.OrderRequest{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
	}

	product, err := s.repo.GetProductBySKU(ctx, normalizeSKU(req.SKU))
	if err != nil {
		return domain.OrderRequest{}, err
	}
	return s.createOrder(ctx, actor, storeID, *product, req.Quantity, req.Note)
}

func (s *Service) createOrder(ctx context.Context, actor domain.Actor, storeID string, product domain.Product, qty int, note string) (domain.OrderRequest, error) {
	order, err := s.repo.CreateOrder(ctx, domain.OrderRequest{
		StoreID:      storeID,
		SKU:          product.SKU,
		RequestedQty: qty,
		Note:         strings.TrimSpace(note),
		RequestedBy:  actor.Username,
		LastActor:    actor.Username,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return domain.OrderRequest{}, err
	}

	if _, err := s.emit(ctx, domain.Notification{
		Title:      fmt.Sprintf("New order request: %s x%d", product.Name, order.RequestedQty),
		Message:    fmt.Sprintf("%s requested %d units of %s for %s.", actor.Username, order.RequestedQty, product.Name, storeID),
		Type:       domain.NotificationOrderUpdate,
		Priority:   domain.PriorityMedium,
		TargetRole: orderflow.Counterparty(actor.Role),
		StoreID:    storeID,
		SKU:        product.SKU,
		OrderID:    order.ID,
		CreatedBy:  actor.Username,
	}); err != nil {
		s.logger.Warn("order request notification failed", zap.String("order_id", order.ID), zap.Error(err))
	}
	s.logAudit(ctx, storeID, "order_create", "order_request", order.ID, fmt.Sprintf("sku=%s,qty=%d", order.SKU, order.RequestedQty))
	return *order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.OrderRequest, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.OrderRequest{}, err
	}
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.OrderRequest{}, err
	}
	if actor.Role != domain.RoleAdmin && order.StoreID != actor.StoreID {
		return domain.OrderRequest{}, store.ErrNotFound
	}
	return *order, nil
}

func (s *Service) ListOrders(ctx context.Context, status string, openOnly bool) ([]domain.OrderRequest, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return nil, err
	}
	filter := domain.OrderFilter{Status: strings.ToLower(strings.TrimSpace(status)), OpenOnly: openOnly}
	if actor.Role != domain.RoleAdmin {
		filter.StoreID = actor.StoreID
	}
	return s.repo.ListOrders(ctx, filter)
}

// TransitionOrder applies a named event from an HTTP request body.
func (s *Service) TransitionOrder(ctx context.Context, id string, req domain.OrderTransitionRequest) (domain.OrderRequest, error) {
	event, err := orderflow.ParseEvent(req.Event)
	if err != nil {
		return domain.OrderRequest{}, err
	}
	cmd := orderflow.Command{Event: event, Quantity: req.Quantity, Note: req.Note}
	if strings.TrimSpace(req.ExpiryDate) != "" {
		expiry, err := importer.Date(req.ExpiryDate)
		if err != nil {
			return domain.OrderRequest{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
		}
		cmd.ExpiryDate = &expiry
	}
	return s.transition(ctx, id, cmd)
}

func (s *Service) Acknowledge(ctx context.Context, id string) (domain.OrderRequest, error) {
	return s.transition(ctx, id, orderflow.Command{Event: orderflow.EventAcknowledge})
}

// Approve fulfils qty units (0 means the full request) from warehouse stock.
func (s *Service) Approve(ctx context.Context, id string, qty int) (domain.OrderRequest, error) {
	return s.transition(ctx, id, orderflow.Command{Event: orderflow.EventApprove, Quantity: qty})
}

func (s *Service) PlaceSupplierOrder(ctx context.Context, id string) (domain.OrderRequest, error) {
	return s.transition(ctx, id, orderflow.Command{Event: orderflow.EventPlaceOrder})
}

func (s *Service) Deliver(ctx context.Context, id string) (domain.OrderRequest, error) {
	return s.transition(ctx, id, orderflow.Command{Event: orderflow.EventDeliver})
}

// Receive books a supplier delivery into the requesting store.
func (s *Service) Receive(ctx context.Context, id string, qty int, expiry *time.Time) (domain.OrderRequest, error) {
	return s.transition(ctx, id, orderflow.Command{Event: orderflow.EventReceive, Quantity: qty, ExpiryDate: expiry})
}

func (s *Service) Confirm(ctx context.Context, id string) (domain.OrderRequest, error) {
	return s.transition(ctx, id, orderflow.Command{Event: orderflow.EventConfirm})
}

func (s *Service) Cancel(ctx context.Context, id string, note string) (domain.OrderRequest, error) {
	return s.transition(ctx, id, orderflow.Command{Event: orderflow.EventCancel, Note: note})
}

func (s *Service) transition(ctx context.Context, id string, cmd orderflow.Command) (domain.OrderRequest, error) {
	actor, err := requireRole(ctx, domain.RoleInventory, domain.RoleAdmin)
	if err != nil {
		return domain.OrderRequest{}, err
	}
	current, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.OrderRequest{}, err
	}
	if actor.Role != domain.RoleAdmin && current.StoreID != actor.StoreID {
		return domain.OrderRequest{}, store.ErrNotFound
	}

	cmd.Actor = actor
	cmd.At = s.now()
	updated, err := s.repo.TransitionOrder(ctx, id, cmd, s.warehouseID)
	outcome := orderflow.OutcomeOf(err)
	if err != nil {
		s.logger.Info("order transition rejected",
			zap.String("order_id", id),
			zap.String("event", string(cmd.Event)),
			zap.String("actor", actor.Username),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		return domain.OrderRequest{}, err
	}

	name := updated.SKU
	if product, err := s.repo.GetProductBySKU(ctx, updated.SKU); err == nil {
		name = product.Name
	}
	title := orderflow.Describe(cmd.Event, *updated, name)
	message := fmt.Sprintf("%s moved order %s from %s to %s.", actor.Username, updated.ID, current.Status, updated.Status)
	if updated.Note != "" {
		message += " Note: " + updated.Note
	}
	if _, err := s.emit(ctx, domain.Notification{
		Title:      title,
		Message:    message,
		Type:       domain.NotificationOrderUpdate,
		Priority:   domain.PriorityMedium,
		TargetRole: orderflow.Counterparty(actor.Role),
		StoreID:    updated.StoreID,
		SKU:        updated.SKU,
		OrderID:    updated.ID,
		CreatedBy:  actor.Username,
	}); err != nil {
		s.logger.Warn("order notification failed", zap.String("order_id", updated.ID), zap.Error(err))
	}

	s.logAudit(ctx, updated.StoreID, "order_"+string(cmd.Event), "order_request", updated.ID, fmt.Sprintf("from=%s,to=%s,outcome=%s", current.Status, updated.Status, outcome))
	return *updated, nil
}
