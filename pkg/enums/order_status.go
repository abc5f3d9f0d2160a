package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusInProgress     OrderStatus = "in_progress"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"

	// legacyOrderStatusOngoing predates the in_progress rename and is
	// still accepted on input.
	legacyOrderStatusOngoing = "ongoing"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// orderEdges is the closed transition table. The -> paid edges are
// reserved for the payment reconciler; callers cannot set them (see
// OrderStatus.GatewayOnly).
var orderEdges = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusPaid:           {OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusInProgress:     {OrderStatusCompleted, OrderStatusCancelled},
}

// IsValid checks whether the given status matches the canonical enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the edge s -> target is allowed.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// GatewayOnly reports whether the status may only be reached through a
// confirmed gateway event.
func (s OrderStatus) GatewayOnly() bool {
	return s == OrderStatusPaid
}

// PaidOrBeyond reports whether a payment has already been applied. Used
// by the webhook path to treat redeliveries as no-ops.
func (s OrderStatus) PaidOrBeyond() bool {
	switch s {
	case OrderStatusPaid, OrderStatusInProgress, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw strings into OrderStatus, folding the
// legacy "ongoing" spelling into in_progress.
func ParseOrderStatus(value string) (OrderStatus, error) {
	if value == legacyOrderStatusOngoing {
		return OrderStatusInProgress, nil
	}
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
