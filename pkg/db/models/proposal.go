package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigflowhq/gigflow-backend/pkg/enums"
)

// Proposal is a freelancer's bid on a gig. At most one proposal per
// {gig_id, freelancer_id} exists, enforced by a unique index.
type Proposal struct {
	ID                uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GigID             uuid.UUID            `gorm:"column:gig_id;type:uuid;not null;index:idx_proposals_gig_freelancer,unique" json:"gig_id"`
	FreelancerID      uuid.UUID            `gorm:"column:freelancer_id;type:uuid;not null;index:idx_proposals_gig_freelancer,unique" json:"freelancer_id"`
	ClientID          uuid.UUID            `gorm:"column:client_id;type:uuid;not null;index" json:"client_id"`
	Status            enums.ProposalStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	ProposalText      string               `gorm:"column:proposal_text;type:text;not null" json:"proposal_text"`
	EstimatedDuration string               `gorm:"column:estimated_duration;type:text" json:"estimated_duration,omitempty"`
	BidAmount         decimal.Decimal      `gorm:"column:bid_amount;type:numeric(12,2);not null" json:"bid_amount"`
	ProfileSnapshot   ProfileSnapshot      `gorm:"column:profile_snapshot;type:jsonb;serializer:json" json:"profile_snapshot"`
	ReviewedAt        *time.Time           `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	AcceptedAt        *time.Time           `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CompletedAt       *time.Time           `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
