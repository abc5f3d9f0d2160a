package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/api/middleware"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
)

// callerID resolves the authenticated user seeded by the auth middleware.
func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return id, nil
}

func callerRole(r *http.Request) (enums.UserRole, error) {
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}
	return role, nil
}
