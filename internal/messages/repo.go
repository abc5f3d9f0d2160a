package messages

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
)

// Repository defines persistence operations for direct messages.
type Repository interface {
	Create(ctx context.Context, message *models.Message) error
	Conversation(ctx context.Context, userA, userB uuid.UUID, params pagination.Params) ([]models.Message, error)
	MarkReadFrom(ctx context.Context, recipientID, senderID uuid.UUID, now time.Time) (int64, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a messages repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// Conversation returns the thread between two users, newest first.
func (r *repository) Conversation(ctx context.Context, userA, userB uuid.UUID, params pagination.Params) ([]models.Message, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", userA, userB, userB, userA)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Message
	err = query.
		Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkReadFrom stamps every unread message from one sender to the
// recipient. Returns the number of rows touched.
func (r *repository) MarkReadFrom(ctx context.Context, recipientID, senderID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND read_at IS NULL", recipientID, senderID).
		Update("read_at", now)
	return result.RowsAffected, result.Error
}

func (r *repository) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Count(&count).Error
	return count, err
}
