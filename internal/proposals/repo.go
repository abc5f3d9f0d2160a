package proposals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
)

// Repository defines persistence operations for proposals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, proposal *models.Proposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	FindByGigAndFreelancer(ctx context.Context, gigID, freelancerID uuid.UUID) (*models.Proposal, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to enums.ProposalStatus, updates map[string]any) (int64, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Proposal, error)
}

// ListFilters restricts the proposal listing. Nil fields are ignored.
type ListFilters struct {
	FreelancerID *uuid.UUID
	ClientID     *uuid.UUID
	GigID        *uuid.UUID
	Status       *enums.ProposalStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a proposals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, proposal *models.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := r.db.WithContext(ctx).First(&proposal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *repository) FindByGigAndFreelancer(ctx context.Context, gigID, freelancerID uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.WithContext(ctx).
		First(&proposal, "gig_id = ? AND freelancer_id = ?", gigID, freelancerID).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// UpdateStatusIf performs a conditional write so concurrent callers
// racing on the same edge cannot both win. Returns the affected row
// count.
func (r *repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to enums.ProposalStatus, updates map[string]any) (int64, error) {
	set := map[string]any{"status": to}
	for column, value := range updates {
		set[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(set)
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Proposal, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Proposal{})
	if filters.FreelancerID != nil {
		query = query.Where("freelancer_id = ?", *filters.FreelancerID)
	}
	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}
	if filters.GigID != nil {
		query = query.Where("gig_id = ?", *filters.GigID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Proposal
	err = query.
		Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
