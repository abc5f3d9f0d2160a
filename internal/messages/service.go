package messages

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/internal/notifications"
	"github.com/gigflowhq/gigflow-backend/internal/realtime"
	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
)

type connectionChecker interface {
	CanMessage(ctx context.Context, userA, userB uuid.UUID) (bool, error)
}

// Service exposes the direct messaging operations. Messaging rides on
// connections: only accepted pairs may talk.
type Service interface {
	Send(ctx context.Context, input SendInput) (*models.Message, error)
	Conversation(ctx context.Context, input ConversationInput) (*pagination.Page[models.Message], error)
	MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type service struct {
	repo        Repository
	connections connectionChecker
	channel     realtime.Channel
	notifier    notifications.Notifier
}

// SendInput carries one direct message.
type SendInput struct {
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Body        string
}

// ConversationInput pages through a thread between the caller and a
// peer.
type ConversationInput struct {
	UserID uuid.UUID
	PeerID uuid.UUID
	Params pagination.Params
}

// NewService builds the messages service. The realtime channel is
// optional.
func NewService(repo Repository, connections connectionChecker, channel realtime.Channel, notifier notifications.Notifier) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "messages repository required")
	}
	if connections == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "connections service required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		repo:        repo,
		connections: connections,
		channel:     channel,
		notifier:    notifier,
	}, nil
}

// Send persists the message, then fans it out to the recipient. The
// persisted row is the source of truth; push and notification failures
// never surface to the sender.
func (s *service) Send(ctx context.Context, input SendInput) (*models.Message, error) {
	if input.SenderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if input.SenderID == input.RecipientID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot message yourself")
	}
	if input.Body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}

	allowed, err := s.connections.CanMessage(ctx, input.SenderID, input.RecipientID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "messaging requires an accepted connection")
	}

	message := &models.Message{
		SenderID:    input.SenderID,
		RecipientID: input.RecipientID,
		Body:        input.Body,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
	}

	if s.channel != nil {
		s.channel.Push(ctx, message.RecipientID, realtime.Event{
			Kind: realtime.KindMessage,
			Data: message,
		})
	}
	_, _ = s.notifier.Notify(ctx, notifications.NotifyInput{
		UserID: message.RecipientID,
		Type:   enums.NotificationTypeMessageReceived,
		Title:  "New message",
		Data: map[string]any{
			"message_id": message.ID.String(),
			"sender_id":  message.SenderID.String(),
		},
	})
	return message, nil
}

// Conversation pages through the caller's thread with a peer. The
// connection does not have to still be accepted to read history.
func (s *service) Conversation(ctx context.Context, input ConversationInput) (*pagination.Page[models.Message], error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PeerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "peer id required")
	}

	rows, err := s.repo.Conversation(ctx, input.UserID, input.PeerID, input.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversation")
	}

	page := pagination.BuildPage(rows, input.Params.Limit, func(m models.Message) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return &page, nil
}

// MarkRead stamps every unread message from the given sender.
func (s *service) MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if senderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "sender id required")
	}
	rows, err := s.repo.MarkReadFrom(ctx, recipientID, senderID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
	}
	return rows, nil
}

func (s *service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	count, err := s.repo.UnreadCount(ctx, recipientID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	return count, nil
}
