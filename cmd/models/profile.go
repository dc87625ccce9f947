package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription status values stored on a profile.
const (
	SubscriptionInactive = "inactive"
	SubscriptionActive   = "active"
	SubscriptionExpired  = "expired"
)

type Profile struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email               string     `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	FullName            string     `gorm:"column:full_name;size:255;not null" json:"full_name"`
	PasswordHash        string     `gorm:"column:password_hash;size:255;not null" json:"-"`
	IsAdmin             bool       `gorm:"column:is_admin;default:false" json:"is_admin"`
	SubscriptionStatus  string     `gorm:"column:subscription_status;size:50;not null;default:inactive" json:"subscription_status"`
	SubscriptionExpires *time.Time `gorm:"column:subscription_expires" json:"subscription_expires"`
	CreatedAt           time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Profile IDs are assigned server-side, never by the caller.
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
