package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a persisted refresh token so sessions can be revoked on
// sign-out.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProfileID uuid.UUID `gorm:"column:profile_id;type:uuid;not null;index" json:"profile_id"`
	Token     string    `gorm:"column:token;size:512;not null" json:"-"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	ProfileID uuid.UUID `gorm:"column:profile_id;type:uuid;not null;index"`
	Token     string    `gorm:"column:token;size:64;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
}
