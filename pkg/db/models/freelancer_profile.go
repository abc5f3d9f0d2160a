package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FreelancerProfile is the profile read model snapshotted into proposals
// at submission time.
type FreelancerProfile struct {
	ID         uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	Headline   string           `gorm:"type:text;not null" json:"headline"`
	Bio        string           `gorm:"type:text" json:"bio"`
	Skills     []string         `gorm:"type:jsonb;serializer:json" json:"skills"`
	HourlyRate *decimal.Decimal `gorm:"column:hourly_rate;type:numeric(12,2)" json:"hourly_rate,omitempty"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ProfileSnapshot is the immutable view embedded in a proposal. Later
// profile edits never alter what the client evaluated.
type ProfileSnapshot struct {
	Headline    string           `json:"headline"`
	Bio         string           `json:"bio,omitempty"`
	Skills      []string         `json:"skills,omitempty"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate,omitempty"`
	DisplayName string           `json:"display_name"`
	CapturedAt  time.Time        `json:"captured_at"`
}
