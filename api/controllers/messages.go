package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/api/responses"
	"github.com/gigflowhq/gigflow-backend/api/validators"
	"github.com/gigflowhq/gigflow-backend/internal/messages"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
)

type sendMessageBody struct {
	RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
	Body        string    `json:"body" validate:"required,max=5000"`
}

// SendMessage delivers a message to a connected user.
func SendMessage(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sendMessageBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.Send(r.Context(), messages.SendInput{
			SenderID:    actorID,
			RecipientID: body.RecipientID,
			Body:        strings.TrimSpace(body.Body),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// Conversation pages the thread with another user and marks the peer's
// messages read as a side effect of viewing them.
func Conversation(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		otherID, err := validators.PathUUID(r, "otherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Conversation(r.Context(), messages.ConversationInput{
			UserID: actorID,
			PeerID: otherID,
			Params: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.MarkRead(r.Context(), actorID, otherID); err != nil {
			// Reading still succeeded; losing the read receipt is not
			// worth failing the fetch.
			if logg != nil {
				ctx := logg.WithField(r.Context(), "error", err.Error())
				logg.Warn(ctx, "mark conversation read failed")
			}
		}
		responses.WriteSuccess(w, page)
	}
}
