package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/pkg/enums"
)

// Connection links a client and a freelancer. At most one row in an
// active status may exist per unordered user pair, enforced by a
// partial unique index on (least, greatest) of the two ids in the
// schema. Display names are snapshotted at request time.
type Connection struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequesterID   uuid.UUID              `gorm:"column:requester_id;type:uuid;not null;index" json:"requester_id"`
	RecipientID   uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index" json:"recipient_id"`
	RequesterName string                 `gorm:"column:requester_name;type:text;not null" json:"requester_name"`
	RecipientName string                 `gorm:"column:recipient_name;type:text;not null" json:"recipient_name"`
	Status        enums.ConnectionStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	Message       string                 `gorm:"type:text" json:"message,omitempty"`
	IsRead        bool                   `gorm:"column:is_read;not null;default:false" json:"is_read"`
	AcceptedAt    *time.Time             `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	RejectedAt    *time.Time             `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Involves reports whether the given user is either side of the pair.
func (c *Connection) Involves(userID uuid.UUID) bool {
	return c.RequesterID == userID || c.RecipientID == userID
}

// PeerOf returns the other side of the pair relative to the given
// user. Callers must check Involves first.
func (c *Connection) PeerOf(userID uuid.UUID) uuid.UUID {
	if c.RequesterID == userID {
		return c.RecipientID
	}
	return c.RequesterID
}
