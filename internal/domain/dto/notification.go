package dto

import (
	"github.com/cjfitness/notifier/internal/domain/entity"
)

// CreateNotification is the payload other producers (billing, messaging, the
// HTTP API) use to create an in-app notification.
type CreateNotification struct {
	UserID  string `json:"userId" validate:"required,max=128"`
	Message string `json:"message" validate:"required,max=1000"`
	Type    string `json:"type" validate:"omitempty,max=32"`
	Icon    string `json:"icon" validate:"omitempty,max=32"`
}

func (c CreateNotification) Entity() *entity.Notification {
	return &entity.Notification{
		UserID:  c.UserID,
		Message: c.Message,
		Type:    entity.NotificationType(c.Type),
		Icon:    c.Icon,
	}
}

// MarkReadMatching selects the unread notifications of one recipient that a
// conversation read should also clear.
type MarkReadMatching struct {
	Icon     string `json:"icon" validate:"required,max=32"`
	Contains string `json:"contains" validate:"required,max=256"`
}

// NotificationList is what polling surfaces receive. Unread is derived from
// the rows at query time.
type NotificationList struct {
	Notifications []entity.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}
