package connections

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
)

// Repository defines persistence operations for connections.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, conn *models.Connection) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Connection, error)
	FindActiveBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Connection, error)
	FindLatestBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Connection, error)
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status enums.ConnectionStatus, decidedAt time.Time) (int64, error)
	DeleteIfAccepted(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, userID uuid.UUID, status *enums.ConnectionStatus, params pagination.Params) ([]models.Connection, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a connections repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, conn *models.Connection) error {
	return r.db.WithContext(ctx).Create(conn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	var conn models.Connection
	if err := r.db.WithContext(ctx).First(&conn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

// FindActiveBetween returns the pending or accepted connection for the
// unordered pair, if one exists. Rejected rows never block a new
// request.
func (r *repository) FindActiveBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Connection, error) {
	var conn models.Connection
	err := r.pairQuery(ctx, userA, userB).
		Where("status IN ?", []enums.ConnectionStatus{enums.ConnectionStatusPending, enums.ConnectionStatusAccepted}).
		First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// FindLatestBetween returns the most recent connection for the pair in
// any status.
func (r *repository) FindLatestBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Connection, error) {
	var conn models.Connection
	err := r.pairQuery(ctx, userA, userB).
		Order("created_at DESC").
		First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *repository) pairQuery(ctx context.Context, userA, userB uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)", userA, userB, userB, userA)
}

// UpdateStatusIfPending performs a conditional write so only the first
// response to a pending request wins. Returns the affected row count.
func (r *repository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status enums.ConnectionStatus, decidedAt time.Time) (int64, error) {
	updates := map[string]any{
		"status":     status,
		"is_read":    true,
		"updated_at": decidedAt,
	}
	switch status {
	case enums.ConnectionStatusAccepted:
		updates["accepted_at"] = decidedAt
	case enums.ConnectionStatusRejected:
		updates["rejected_at"] = decidedAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("id = ? AND status = ?", id, enums.ConnectionStatusPending).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// DeleteIfAccepted removes the connection only while it is accepted.
func (r *repository) DeleteIfAccepted(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, enums.ConnectionStatusAccepted).
		Delete(&models.Connection{})
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, userID uuid.UUID, status *enums.ConnectionStatus, params pagination.Params) ([]models.Connection, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("requester_id = ? OR recipient_id = ?", userID, userID)

	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Connection
	err = query.
		Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
