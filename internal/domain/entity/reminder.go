package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderState is the lifecycle position of a reminder.
type ReminderState string

const (
	ReminderStatePending ReminderState = "pending"
	ReminderStateDue     ReminderState = "due"
	ReminderStateFired   ReminderState = "fired"
)

// Reminder is a one-shot alarm the coach sets for a client.
//
// IsTriggered flips to true exactly once, through the conditional claim in the
// reminder storage, and is never cleared again.
type Reminder struct {
	ID          string     `gorm:"primaryKey;type:text" json:"id"`
	ClientID    string     `gorm:"not null;index" json:"clientId"`
	Description string     `gorm:"not null" json:"description"`
	TriggerDate time.Time  `gorm:"not null;index:idx_reminders_due,priority:2" json:"triggerDate"`
	IsTriggered bool       `gorm:"not null;default:false;index:idx_reminders_due,priority:1" json:"isTriggered"`
	TriggeredAt *time.Time `json:"triggeredAt,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
}

// BeforeCreate fills the id and creation time when the caller left them empty.
func (r *Reminder) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return nil
}

// IsDue reports whether the reminder should be picked up by a sweep at now.
func (r *Reminder) IsDue(now time.Time) bool {
	return !r.IsTriggered && !r.TriggerDate.After(now)
}

// State returns the reminder's lifecycle position at now.
func (r *Reminder) State(now time.Time) ReminderState {
	switch {
	case r.IsTriggered:
		return ReminderStateFired
	case r.IsDue(now):
		return ReminderStateDue
	default:
		return ReminderStatePending
	}
}
