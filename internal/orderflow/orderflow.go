// Package orderflow is the order request state machine.
//
// Every status change goes through Next, which either returns the target
// status or a typed error. Stores apply the side effects described by Plan
// (warehouse deduction, store credit, supplier receipt) atomically with the
// status change.
package orderflow

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
)

type Event string

const (
	EventAcknowledge Event = "acknowledge"
	EventApprove     Event = "approve"
	EventPlaceOrder  Event = "place_order"
	EventDeliver     Event = "deliver"
	EventReceive     Event = "receive"
	EventConfirm     Event = "confirm"
	EventCancel      Event = "cancel"
)

// DefaultShelfLife is the expiry given to supplier deliveries received without a date.
const DefaultShelfLife = 365 * 24 * time.Hour

// MaxReceiveFactor caps a supplier receipt at this multiple of the requested quantity.
const MaxReceiveFactor = 2

var (
	ErrInvalidTransition = errors.New("invalid order transition")
	ErrForbidden         = errors.New("role not allowed for order transition")
	ErrUnknownEvent      = errors.New("unknown order event")
	ErrInvalidQuantity   = errors.New("invalid order quantity")
)

type TransitionError struct {
	From  string
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s an order in status %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type rule struct {
	from  []string
	to    string
	roles []string
}

var rules = map[Event]rule{
	EventAcknowledge: {
		from:  []string{domain.OrderStatusPending},
		to:    domain.OrderStatusAcknowledged,
		roles: []string{domain.RoleInventory, domain.RoleAdmin},
	},
	EventApprove: {
		from:  []string{domain.OrderStatusPending, domain.OrderStatusAcknowledged},
		to:    domain.OrderStatusApproved,
		roles: []string{domain.RoleAdmin},
	},
	EventPlaceOrder: {
		from:  []string{domain.OrderStatusAcknowledged},
		to:    domain.OrderStatusOrdered,
		roles: []string{domain.RoleInventory, domain.RoleAdmin},
	},
	EventDeliver: {
		from:  []string{domain.OrderStatusApproved},
		to:    domain.OrderStatusDelivered,
		roles: []string{domain.RoleAdmin},
	},
	EventReceive: {
		from:  []string{domain.OrderStatusOrdered},
		to:    domain.OrderStatusReceived,
		roles: []string{domain.RoleInventory, domain.RoleAdmin},
	},
	EventConfirm: {
		from:  []string{domain.OrderStatusDelivered, domain.OrderStatusReceived},
		to:    domain.OrderStatusCompleted,
		roles: []string{domain.RoleAdmin},
	},
	EventCancel: {
		from:  []string{domain.OrderStatusPending, domain.OrderStatusAcknowledged},
		to:    domain.OrderStatusCancelled,
		roles: []string{domain.RoleInventory, domain.RoleAdmin},
	},
}

func ParseEvent(raw string) (Event, error) {
	event := Event(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := rules[event]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
	}
	return event, nil
}

// Next validates event against the current status and the actor role.
func Next(status string, event Event, role string) (string, error) {
	r, ok := rules[event]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if !slices.Contains(r.roles, role) {
		return "", ErrForbidden
	}
	if !slices.Contains(r.from, status) {
		return "", &TransitionError{From: status, Event: event}
	}
	return r.to, nil
}

// Allowed lists the events the role may fire from status, in table order.
func Allowed(status string, role string) []Event {
	order := []Event{EventAcknowledge, EventApprove, EventPlaceOrder, EventDeliver, EventReceive, EventConfirm, EventCancel}
	result := make([]Event, 0, 2)
	for _, event := range order {
		if _, err := Next(status, event, role); err == nil {
			result = append(result, event)
		}
	}
	return result
}

// Terminal reports whether no further events apply.
func Terminal(status string) bool {
	return status == domain.OrderStatusCompleted || status == domain.OrderStatusCancelled
}

type Command struct {
	Event      Event
	Actor      domain.Actor
	Quantity   int
	ExpiryDate *time.Time
	Note       string
	At         time.Time
}

// Plan is the validated outcome of a command. Stores execute the stock
// effects and persist Order in one transaction.
type Plan struct {
	Order         domain.OrderRequest
	WarehouseQty  int
	CreditStore   []domain.BatchAllocation
	ReceiveQty    int
	ReceiveExpiry time.Time
}

// Prepare runs Next and computes the new order fields and stock effects.
// Warehouse allocations for approve are filled in by the store after it
// calls ledger.Deduct.
func Prepare(order domain.OrderRequest, cmd Command) (Plan, error) {
	to, err := Next(order.Status, cmd.Event, cmd.Actor.Role)
	if err != nil {
		return Plan{}, err
	}
	at := cmd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	next := order
	next.Allocations = slices.Clone(order.Allocations)
	next.Status = to
	next.LastActor = cmd.Actor.Username
	next.UpdatedAt = at
	if note := strings.TrimSpace(cmd.Note); note != "" {
		next.Note = note
	}

	plan := Plan{}
	switch cmd.Event {
	case EventAcknowledge:
		next.InventoryAction = domain.InventoryActionAcknowledged
		next.InventoryActionBy = cmd.Actor.Username
		next.InventoryActionAt = &at
	case EventPlaceOrder:
		next.InventoryAction = domain.InventoryActionOrdered
		next.InventoryActionBy = cmd.Actor.Username
		next.InventoryActionAt = &at
	case EventApprove:
		qty := cmd.Quantity
		if qty == 0 {
			qty = order.RequestedQty
		}
		if qty < 1 || qty > order.RequestedQty {
			return Plan{}, fmt.Errorf("%w: approved quantity must be between 1 and %d", ErrInvalidQuantity, order.RequestedQty)
		}
		plan.WarehouseQty = qty
		next.FulfilledQty = qty
	case EventDeliver:
		plan.CreditStore = slices.Clone(order.Allocations)
	case EventReceive:
		qty := cmd.Quantity
		if qty == 0 {
			qty = order.RequestedQty
		}
		if qty < 1 || qty > order.RequestedQty*MaxReceiveFactor {
			return Plan{}, fmt.Errorf("%w: received quantity must be between 1 and %d", ErrInvalidQuantity, order.RequestedQty*MaxReceiveFactor)
		}
		expiry := domain.DateOnly(at.Add(DefaultShelfLife))
		if cmd.ExpiryDate != nil {
			expiry = domain.DateOnly(*cmd.ExpiryDate)
		}
		if expiry.Before(domain.DateOnly(at)) {
			return Plan{}, fmt.Errorf("%w: expiry date is in the past", ErrInvalidQuantity)
		}
		plan.ReceiveQty = qty
		plan.ReceiveExpiry = expiry
		next.ReceivedQty = qty
	case EventConfirm:
		next.AdminMarkedReceived = true
		next.AdminMarkedReceivedAt = &at
	}
	plan.Order = next
	return plan, nil
}

// Counterparty is the role told about a transition made by role.
func Counterparty(role string) string {
	if role == domain.RoleAdmin {
		return domain.RoleInventory
	}
	return domain.RoleAdmin
}

// Describe renders the notification title for a completed transition.
func Describe(event Event, order domain.OrderRequest, productName string) string {
	switch event {
	case EventAcknowledge:
		return fmt.Sprintf("Order acknowledged: %s x%d", productName, order.RequestedQty)
	case EventApprove:
		return fmt.Sprintf("Order approved: %s x%d from warehouse", productName, order.FulfilledQty)
	case EventPlaceOrder:
		return fmt.Sprintf("Supplier order placed: %s x%d", productName, order.RequestedQty)
	case EventDeliver:
		return fmt.Sprintf("Order delivered: %s x%d to %s", productName, order.FulfilledQty, order.StoreID)
	case EventReceive:
		return fmt.Sprintf("Stock received: %s x%d", productName, order.ReceivedQty)
	case EventConfirm:
		return fmt.Sprintf("Order completed: %s", productName)
	case EventCancel:
		return fmt.Sprintf("Order cancelled: %s x%d", productName, order.RequestedQty)
	}
	return fmt.Sprintf("Order updated: %s", productName)
}

type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeInsufficientStock Outcome = "insufficient_stock"
	OutcomeInvalidTransition Outcome = "invalid_transition"
	OutcomeForbidden         Outcome = "forbidden"
	OutcomeRejected          Outcome = "rejected"
)

// OutcomeOf classifies the error returned by a transition.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeApplied
	case errors.Is(err, ledger.ErrInsufficientStock):
		return OutcomeInsufficientStock
	case errors.Is(err, ErrInvalidTransition):
		return OutcomeInvalidTransition
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	default:
		return OutcomeRejected
	}
}
