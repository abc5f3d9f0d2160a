package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Unique constraint names enforced by the migrations. Services use
// these to turn database conflicts into typed API errors.
const (
	ConstraintConnectionActivePair = "idx_connections_active_pair"
	ConstraintProposalGigBidder    = "idx_proposals_gig_freelancer"
	ConstraintOrderActiveGigClient = "idx_orders_active_gig_client"
)

// IsUniqueViolation reports whether the provided error is a Postgres
// unique violation. When constraintName is given, only a violation of
// that specific constraint matches.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	// gorm translates driver duplicate-key errors on some dialects; the
	// translated error carries no constraint name, so it matches any.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return false
		}
		if constraintName == "" {
			return true
		}
		return pgErr.ConstraintName == constraintName
	}

	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
