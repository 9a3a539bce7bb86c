package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles
const (
	RoleUser      = "user"
	RoleAffiliate = "affiliate"
	RoleAdmin     = "admin"
)

// User represents a user in the system
type User struct {
	Base
	Name         string     `gorm:"type:varchar(100);not null" json:"name"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         string     `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	ReferredByID *uuid.UUID `gorm:"type:uuid;index" json:"referred_by_id,omitempty"`
	ReferredBy   *User      `gorm:"foreignKey:ReferredByID" json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
