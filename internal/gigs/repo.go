package gigs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
)

// Repository encapsulates gig reads.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a gig repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a single gig.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	var gig models.Gig
	if err := r.db.WithContext(ctx).First(&gig, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &gig, nil
}

// FindActiveByID loads a gig only when it is still purchasable.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	var gig models.Gig
	if err := r.db.WithContext(ctx).First(&gig, "id = ? AND active = TRUE", id).Error; err != nil {
		return nil, err
	}
	return &gig, nil
}
