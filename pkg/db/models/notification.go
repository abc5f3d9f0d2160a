package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/pkg/enums"
)

// Notification is a persisted inbox entry for a single recipient.
// Category and priority are derived from the type at write time so
// list queries can filter without recomputing.
type Notification struct {
	ID        uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index:idx_notifications_user_created" json:"user_id"`
	Type      enums.NotificationType     `gorm:"type:text;not null" json:"type"`
	Category  enums.NotificationCategory `gorm:"type:text;not null;index" json:"category"`
	Priority  enums.NotificationPriority `gorm:"type:text;not null" json:"priority"`
	Title     string                     `gorm:"type:text;not null" json:"title"`
	Body      string                     `gorm:"type:text" json:"body,omitempty"`
	Data      map[string]any             `gorm:"type:jsonb;serializer:json" json:"data,omitempty"`
	ReadAt    *time.Time                 `gorm:"column:read_at;index" json:"read_at,omitempty"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime;index:idx_notifications_user_created" json:"created_at"`
}

// IsRead reports whether the notification has been marked read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
