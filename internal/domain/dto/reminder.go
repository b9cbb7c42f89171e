package dto

import (
	"time"

	"github.com/cjfitness/notifier/internal/domain/entity"
)

type CreateReminder struct {
	ClientID    string    `json:"clientId" validate:"required,max=128"`
	Description string    `json:"description" validate:"required,max=500"`
	TriggerDate time.Time `json:"triggerDate" validate:"required"`
}

func (c CreateReminder) Entity() *entity.Reminder {
	return &entity.Reminder{
		ClientID:    c.ClientID,
		Description: c.Description,
		TriggerDate: c.TriggerDate,
	}
}
