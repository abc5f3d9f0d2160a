package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeConnectionRequest  NotificationType = "connection_request"
	NotificationTypeConnectionAccepted NotificationType = "connection_accepted"
	NotificationTypeConnectionRejected NotificationType = "connection_rejected"
	NotificationTypeProposalSubmitted  NotificationType = "proposal_submitted"
	NotificationTypeProposalAccepted   NotificationType = "proposal_accepted"
	NotificationTypeProposalRejected   NotificationType = "proposal_rejected"
	NotificationTypeProposalCompleted  NotificationType = "proposal_completed"
	NotificationTypeOrderCreated       NotificationType = "order_created"
	NotificationTypePaymentReceived    NotificationType = "payment_received"
	NotificationTypeOrderInProgress    NotificationType = "order_in_progress"
	NotificationTypeOrderCompleted     NotificationType = "order_completed"
	NotificationTypeOrderCancelled     NotificationType = "order_cancelled"
	NotificationTypeMessageReceived    NotificationType = "message_received"
)

// NotificationCategory buckets types for list filtering.
type NotificationCategory string

const (
	NotificationCategoryNetwork   NotificationCategory = "network"
	NotificationCategoryProposals NotificationCategory = "proposals"
	NotificationCategoryOrders    NotificationCategory = "orders"
	NotificationCategoryPayments  NotificationCategory = "payments"
	NotificationCategoryMessages  NotificationCategory = "messages"
)

// NotificationPriority orders delivery prominence on the client.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeConnectionRequest,
	NotificationTypeConnectionAccepted,
	NotificationTypeConnectionRejected,
	NotificationTypeProposalSubmitted,
	NotificationTypeProposalAccepted,
	NotificationTypeProposalRejected,
	NotificationTypeProposalCompleted,
	NotificationTypeOrderCreated,
	NotificationTypePaymentReceived,
	NotificationTypeOrderInProgress,
	NotificationTypeOrderCompleted,
	NotificationTypeOrderCancelled,
	NotificationTypeMessageReceived,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// Category derives the list-filter bucket. Category is never stored or
// caller-settable; it is a pure function of the type.
func (n NotificationType) Category() NotificationCategory {
	switch n {
	case NotificationTypeConnectionRequest, NotificationTypeConnectionAccepted, NotificationTypeConnectionRejected:
		return NotificationCategoryNetwork
	case NotificationTypeProposalSubmitted, NotificationTypeProposalAccepted, NotificationTypeProposalRejected, NotificationTypeProposalCompleted:
		return NotificationCategoryProposals
	case NotificationTypePaymentReceived:
		return NotificationCategoryPayments
	case NotificationTypeMessageReceived:
		return NotificationCategoryMessages
	default:
		return NotificationCategoryOrders
	}
}

// Priority derives delivery prominence from the type.
func (n NotificationType) Priority() NotificationPriority {
	switch n {
	case NotificationTypePaymentReceived, NotificationTypeOrderCancelled:
		return NotificationPriorityHigh
	case NotificationTypeMessageReceived:
		return NotificationPriorityLow
	default:
		return NotificationPriorityNormal
	}
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// ParseNotificationCategory converts raw strings into NotificationCategory.
func ParseNotificationCategory(value string) (NotificationCategory, error) {
	switch NotificationCategory(value) {
	case NotificationCategoryNetwork, NotificationCategoryProposals, NotificationCategoryOrders,
		NotificationCategoryPayments, NotificationCategoryMessages:
		return NotificationCategory(value), nil
	}
	return "", fmt.Errorf("invalid notification category %q", value)
}
