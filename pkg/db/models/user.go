package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// User is any marketplace actor: farmer, buyer, or admin.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string         `gorm:"column:email;not null;uniqueIndex:users_email_key"`
	FullName  string         `gorm:"column:full_name;not null"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null"`
	Phone     *string        `gorm:"column:phone"`
	Location  *string        `gorm:"column:location"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
