package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gig is the service-listing read model. Listing CRUD lives outside the
// engagement engine; only price, title and ownership are consumed here.
type Gig struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID   uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Title     string          `gorm:"type:text;not null" json:"title"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Active    bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
