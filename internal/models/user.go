package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID               uuid.UUID  `json:"_id" gorm:"type:uuid;primaryKey"`
	Username         string     `json:"username" gorm:"unique;not null"`
	Email            string     `json:"email" gorm:"unique;not null"`
	PasswordHash     string     `json:"-" gorm:"not null;default:''"`
	Role             string     `json:"role" gorm:"not null;default:'Sales'"`
	AssignedToLeader *uuid.UUID `json:"assignedToLeader" gorm:"type:uuid;index"`
	IsActive         bool       `json:"isActive" gorm:"default:true"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user sees every order.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

const (
	RoleSales      = "Sales"
	RoleAdmin      = "Admin"
	RoleSuperAdmin = "SuperAdmin"
)
