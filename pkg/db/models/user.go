package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/pkg/enums"
)

// User is the identity read model handed over by the auth service. The
// engagement engine never writes to it.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email       string         `gorm:"type:text;not null;uniqueIndex" json:"email"`
	DisplayName string         `gorm:"column:display_name;type:text;not null" json:"display_name"`
	Role        enums.UserRole `gorm:"type:user_role;not null" json:"role"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
