package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error)
	FindActiveByGigAndClient(ctx context.Context, gigID, clientID uuid.UUID) (*models.Order, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (int64, error)
	SetCheckout(ctx context.Context, id uuid.UUID, checkoutID string) error
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, error)
	FindStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// ListFilters scope the order listing to one side of the engagement.
type ListFilters struct {
	ClientID     *uuid.UUID
	FreelancerID *uuid.UUID
	Status       *enums.OrderStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "checkout_id = ?", checkoutID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindActiveByGigAndClient returns the client's live order for a gig,
// mirroring the partial unique index that keeps one per pair.
func (r *repository) FindActiveByGigAndClient(ctx context.Context, gigID, clientID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("gig_id = ? AND client_id = ?", gigID, clientID).
		Where("status <> ?", enums.OrderStatusCancelled).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusIf performs the conditional status write. The row is only
// touched when its current status is in the from set, so concurrent
// writers and webhook replays cannot double-apply a transition.
func (r *repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (int64, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) SetCheckout(ctx context.Context, id uuid.UUID, checkoutID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("checkout_id", checkoutID).Error
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}
	if filters.FreelancerID != nil {
		query = query.Where("freelancer_id = ?", *filters.FreelancerID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindStaleUnpaid returns orders still waiting on payment past the
// cutoff, oldest first.
func (r *repository) FindStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPendingPayment}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
