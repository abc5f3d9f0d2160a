package profiles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
)

// Repository encapsulates freelancer profile persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profile repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUserID loads the profile for a freelancer.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.FreelancerProfile, error) {
	var profile models.FreelancerProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert creates or replaces the freelancer's profile.
func (r *Repository) Upsert(ctx context.Context, profile *models.FreelancerProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"headline", "bio", "skills", "hourly_rate", "updated_at",
			}),
		}).
		Create(profile).Error
}

// Snapshot captures the immutable profile view embedded in a proposal.
func Snapshot(profile *models.FreelancerProfile, displayName string, now time.Time) models.ProfileSnapshot {
	snap := models.ProfileSnapshot{
		DisplayName: displayName,
		CapturedAt:  now.UTC(),
	}
	if profile != nil {
		snap.Headline = profile.Headline
		snap.Bio = profile.Bio
		snap.Skills = append([]string(nil), profile.Skills...)
		if profile.HourlyRate != nil {
			rate := *profile.HourlyRate
			snap.HourlyRate = &rate
		}
	}
	return snap
}
