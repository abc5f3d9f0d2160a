package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/internal/realtime"
	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
)

// Service defines notification creation, listing and read tracking.
type Service interface {
	Notify(ctx context.Context, input NotifyInput) (*models.Notification, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Notifier is the narrow surface other domain services depend on.
type Notifier interface {
	Notify(ctx context.Context, input NotifyInput) (*models.Notification, error)
}

type service struct {
	repo     Repository
	realtime realtime.Channel
}

// NotifyInput carries everything needed to record a notification.
type NotifyInput struct {
	UserID uuid.UUID
	Type   enums.NotificationType
	Title  string
	Body   string
	Data   map[string]any
}

// ListParams configures pagination and filters for notifications.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	Category   string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies. The realtime channel is
// optional: without it notifications are persisted but never pushed.
func NewService(repo Repository, channel realtime.Channel) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, realtime: channel}, nil
}

// Notify persists the notification first and then attempts the realtime
// push. A push failure never loses the notification.
func (s *service) Notify(ctx context.Context, input NotifyInput) (*models.Notification, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification title required")
	}

	notification := &models.Notification{
		UserID:   input.UserID,
		Type:     input.Type,
		Category: input.Type.Category(),
		Priority: input.Type.Priority(),
		Title:    input.Title,
		Body:     input.Body,
		Data:     input.Data,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist notification")
	}

	if s.realtime != nil {
		s.realtime.Push(ctx, input.UserID, realtime.Event{
			Kind: realtime.KindNotification,
			Data: notification,
		})
	}
	return notification, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listNotificationsParams{
		UserID:     params.UserID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Category != "" {
		category, err := enums.ParseNotificationCategory(params.Category)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		query.Category = &category
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	if rows == nil {
		rows = []models.Notification{}
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

// MarkRead is idempotent: marking an already-read notification succeeds
// without touching the original read timestamp.
func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}
