package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/api/responses"
	"github.com/gigflowhq/gigflow-backend/api/validators"
	"github.com/gigflowhq/gigflow-backend/internal/connections"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
)

type connectionRequestBody struct {
	RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
	Message     string    `json:"message" validate:"max=500"`
}

// RequestConnection opens a pending connection to another user.
func RequestConnection(svc connections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body connectionRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := svc.Request(r.Context(), connections.RequestInput{
			RequesterID: actorID,
			RecipientID: body.RecipientID,
			Message:     strings.TrimSpace(body.Message),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, conn)
	}
}

// RespondConnection accepts or rejects a pending request; the decision
// comes from the route, not the body.
func RespondConnection(svc connections.Service, accept bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		connectionID, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := svc.Respond(r.Context(), connections.RespondInput{
			ConnectionID: connectionID,
			ActorID:      actorID,
			Accept:       accept,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, conn)
	}
}

// RemoveConnection deletes the accepted connection with another user.
func RemoveConnection(svc connections.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Remove(r.Context(), actorID, otherID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// ListConnections pages the caller's connections, optionally filtered by
// status.
func ListConnections(svc connections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), connections.ListInput{
			UserID: actorID,
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
			Params: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ConnectionStatus reports the relationship between the caller and
// another user.
func ConnectionStatus(svc connections.Service, logg *logger.Logger) http.HandlerFunc {
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

		status, err := svc.StatusBetween(r.Context(), actorID, otherID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
