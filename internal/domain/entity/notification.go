package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeAlert   NotificationType = "alert"
	NotificationTypeWarning NotificationType = "warning"
)

const (
	// CoachUserID is the recipient id used for notifications addressed to the coach.
	CoachUserID = "admin"

	DefaultNotificationIcon = "bell"
)

// Notification is an in-app notification shown to a client or to the coach.
//
// Everything except Read is immutable after creation, and Read only ever goes
// from false to true. ID is opaque text: generated ids are UUIDs, but ids
// from older portal data are not.
type Notification struct {
	ID        string           `gorm:"primaryKey;type:text" json:"id"`
	UserID    string           `gorm:"not null;index:idx_notifications_user_read,priority:1" json:"userId"`
	Message   string           `gorm:"not null" json:"message"`
	Type      NotificationType `gorm:"not null" json:"type"`
	Icon      string           `gorm:"not null" json:"icon"`
	Read      bool             `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"read"`
	CreatedAt time.Time        `gorm:"not null;index" json:"createdAt"`
}

// Prepare assigns the id, creation time, type and icon when they are missing.
func (n *Notification) Prepare(now time.Time) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.Type == "" {
		n.Type = NotificationTypeInfo
	}
	if n.Icon == "" {
		n.Icon = DefaultNotificationIcon
	}
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	n.Prepare(time.Now())
	return nil
}
