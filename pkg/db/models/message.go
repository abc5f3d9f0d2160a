package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two users who share an accepted
// connection at send time.
type Message struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SenderID    uuid.UUID  `gorm:"column:sender_id;type:uuid;not null;index:idx_messages_pair" json:"sender_id"`
	RecipientID uuid.UUID  `gorm:"column:recipient_id;type:uuid;not null;index:idx_messages_pair" json:"recipient_id"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	ReadAt      *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}
