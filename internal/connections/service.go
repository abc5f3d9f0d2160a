package connections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/internal/notifications"
	"github.com/gigflowhq/gigflow-backend/pkg/db"
	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
)

// Pair statuses reported by StatusBetween beyond the stored enum.
const (
	PairStatusSelf = "self"
	PairStatusNone = "none"
)

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service exposes connection lifecycle operations.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.Connection, error)
	Respond(ctx context.Context, input RespondInput) (*models.Connection, error)
	Remove(ctx context.Context, actorID, otherID uuid.UUID) error
	StatusBetween(ctx context.Context, userA, userB uuid.UUID) (*PairStatus, error)
	Get(ctx context.Context, actorID, connectionID uuid.UUID) (*models.Connection, error)
	List(ctx context.Context, input ListInput) (*pagination.Page[models.Connection], error)
	CanMessage(ctx context.Context, userA, userB uuid.UUID) (bool, error)
}

type service struct {
	repo     Repository
	users    userFinder
	notifier notifications.Notifier
}

// RequestInput carries a new connection request.
type RequestInput struct {
	RequesterID uuid.UUID
	RecipientID uuid.UUID
	Message     string
}

// RespondInput carries the recipient's decision on a pending request.
type RespondInput struct {
	ConnectionID uuid.UUID
	ActorID      uuid.UUID
	Accept       bool
}

// ListInput configures the connection listing for one user.
type ListInput struct {
	UserID uuid.UUID
	Status string
	Params pagination.Params
}

// PairStatus is the read-only relationship between two users. Status is
// a ConnectionStatus string, "self", or "none"; IsRequester is set only
// when a record exists.
type PairStatus struct {
	Status      string `json:"status"`
	IsRequester *bool  `json:"is_requester,omitempty"`
}

// NewService builds the connections service.
func NewService(repo Repository, users userFinder, notifier notifications.Notifier) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "connections repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{repo: repo, users: users, notifier: notifier}, nil
}

// Request creates a pending connection. Either side of a
// client/freelancer pair may initiate; a rejected history never blocks
// a fresh request, but a pending or accepted one does.
func (s *service) Request(ctx context.Context, input RequestInput) (*models.Connection, error) {
	if input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if input.RequesterID == input.RecipientID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot connect to yourself")
	}

	requester, err := s.users.FindByID(ctx, input.RequesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "requester not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load requester")
	}
	recipient, err := s.users.FindByID(ctx, input.RecipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recipient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipient")
	}
	if recipient.Role == requester.Role {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "connections pair a client with a freelancer")
	}
	if requester.DisplayName == "" || recipient.DisplayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "both parties need a display name")
	}

	if existing, err := s.repo.FindActiveBetween(ctx, input.RequesterID, input.RecipientID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "connection already exists").
			WithDetails(existing)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing connection")
	}

	conn := &models.Connection{
		RequesterID:   input.RequesterID,
		RecipientID:   input.RecipientID,
		RequesterName: requester.DisplayName,
		RecipientName: recipient.DisplayName,
		Status:        enums.ConnectionStatusPending,
		Message:       input.Message,
	}
	if err := s.repo.Create(ctx, conn); err != nil {
		if db.IsUniqueViolation(err, db.ConstraintConnectionActivePair) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "connection already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create connection")
	}

	s.notify(ctx, conn.RecipientID, enums.NotificationTypeConnectionRequest, "New connection request", conn)
	return conn, nil
}

// Respond applies accept/reject. Only the recipient may decide, only
// while pending, and only the first decision wins.
func (s *service) Respond(ctx context.Context, input RespondInput) (*models.Connection, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ConnectionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "connection id required")
	}

	conn, err := s.repo.FindByID(ctx, input.ConnectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "connection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load connection")
	}
	if !conn.Involves(input.ActorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "connection does not involve user")
	}
	if conn.RecipientID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the recipient can respond")
	}

	target := enums.ConnectionStatusRejected
	if input.Accept {
		target = enums.ConnectionStatusAccepted
	}
	if !conn.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move connection from %s to %s", conn.Status, target))
	}

	now := time.Now().UTC()
	rows, err := s.repo.UpdateStatusIfPending(ctx, conn.ID, target, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update connection status")
	}
	if rows == 0 {
		// Lost the race to a concurrent decision.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "connection already decided")
	}

	conn.Status = target
	conn.IsRead = true
	conn.UpdatedAt = now
	notifType := enums.NotificationTypeConnectionRejected
	title := "Connection request declined"
	if input.Accept {
		conn.AcceptedAt = &now
		notifType = enums.NotificationTypeConnectionAccepted
		title = "Connection request accepted"
	} else {
		conn.RejectedAt = &now
	}

	s.notify(ctx, conn.RequesterID, notifType, title, conn)
	return conn, nil
}

// Remove deletes the connection with the other user. Either party may
// remove, but only from the accepted state.
func (s *service) Remove(ctx context.Context, actorID, otherID uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if otherID == uuid.Nil || otherID == actorID {
		return pkgerrors.New(pkgerrors.CodeValidation, "other user id required")
	}

	conn, err := s.repo.FindActiveBetween(ctx, actorID, otherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "connection not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load connection")
	}
	if conn.Status != enums.ConnectionStatusAccepted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only accepted connections can be removed")
	}

	rows, err := s.repo.DeleteIfAccepted(ctx, conn.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove connection")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "connection changed concurrently")
	}
	return nil
}

// StatusBetween is a pure read of the relationship between two users.
func (s *service) StatusBetween(ctx context.Context, userA, userB uuid.UUID) (*PairStatus, error) {
	if userA == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if userB == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "other user id required")
	}
	if userA == userB {
		return &PairStatus{Status: PairStatusSelf}, nil
	}

	conn, err := s.repo.FindLatestBetween(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &PairStatus{Status: PairStatusNone}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load connection")
	}

	isRequester := conn.RequesterID == userA
	return &PairStatus{Status: string(conn.Status), IsRequester: &isRequester}, nil
}

func (s *service) Get(ctx context.Context, actorID, connectionID uuid.UUID) (*models.Connection, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	conn, err := s.repo.FindByID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "connection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load connection")
	}
	if !conn.Involves(actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "connection does not involve user")
	}
	return conn, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[models.Connection], error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var status *enums.ConnectionStatus
	if input.Status != "" {
		parsed, err := enums.ParseConnectionStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		status = &parsed
	}

	rows, err := s.repo.List(ctx, input.UserID, status, input.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list connections")
	}

	page := pagination.BuildPage(rows, input.Params.Limit, func(c models.Connection) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page, nil
}

// CanMessage reports whether an accepted connection links the two users.
func (s *service) CanMessage(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	if userA == uuid.Nil || userB == uuid.Nil || userA == userB {
		return false, nil
	}
	conn, err := s.repo.FindActiveBetween(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check connection")
	}
	return conn.Status == enums.ConnectionStatusAccepted, nil
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, title string, conn *models.Connection) {
	// Best effort: notification failures never unwind the mutation.
	_, _ = s.notifier.Notify(ctx, notifications.NotifyInput{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Data: map[string]any{
			"connection_id": conn.ID.String(),
			"requester_id":  conn.RequesterID.String(),
			"status":        string(conn.Status),
		},
	})
}
