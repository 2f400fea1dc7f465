package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID        uuid.UUID `json:"_id" gorm:"type:uuid;primaryKey"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
	IsRead    bool      `json:"isRead" gorm:"not null;default:false"`
	Role      string    `json:"role" gorm:"not null;default:'All'"`
	// UserID is the order's owner; AssignedTo its assignee at the time.
	UserID     *uuid.UUID `json:"userId" gorm:"type:uuid;index"`
	AssignedTo *uuid.UUID `json:"assignedTo" gorm:"type:uuid;index"`
	OrderID    string     `json:"orderId" gorm:"not null;default:''"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NotificationRoleAll scopes a notification to everyone who can see its owner.
const NotificationRoleAll = "All"
