package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigflowhq/gigflow-backend/pkg/enums"
)

// Order is a paid or payable engagement between a client and a
// freelancer over a gig. At most one non-cancelled order per
// {gig_id, client_id} exists regardless of how it was created,
// enforced by a partial unique index in the schema.
type Order struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GigID        uuid.UUID         `gorm:"column:gig_id;type:uuid;not null;index" json:"gig_id"`
	ClientID     uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index" json:"client_id"`
	FreelancerID uuid.UUID         `gorm:"column:freelancer_id;type:uuid;not null;index" json:"freelancer_id"`
	ProposalID   *uuid.UUID        `gorm:"column:proposal_id;type:uuid" json:"proposal_id,omitempty"`
	Title        string            `gorm:"type:text;not null" json:"title"`
	Status       enums.OrderStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	Amount       decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency     string            `gorm:"type:text;not null;default:'usd'" json:"currency"`
	CheckoutID   string            `gorm:"column:checkout_id;type:text;index" json:"-"`
	PaymentRef   string            `gorm:"column:payment_ref;type:text" json:"payment_ref,omitempty"`
	PaidAt       *time.Time        `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CompletedAt  *time.Time        `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt  *time.Time        `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// FromProposal reports whether the order was created through proposal
// acceptance rather than direct purchase.
func (o *Order) FromProposal() bool {
	return o.ProposalID != nil
}
