package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/entity"
	"gorm.io/gorm"
)

type ReminderStorage struct {
	db *gorm.DB
}

func NewReminderStorage(db *gorm.DB) *ReminderStorage {
	return &ReminderStorage{
		db: db,
	}
}

// Create is a function that creates a new reminder in the database.
func (s *ReminderStorage) Create(ctx context.Context, reminder *entity.Reminder) (*entity.Reminder, error) {
	reminder.IsTriggered = false
	reminder.TriggeredAt = nil
	if err := s.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return reminder, nil
}

// Get is a function that gets a reminder from the database by id.
func (s *ReminderStorage) Get(ctx context.Context, id string) (*entity.Reminder, error) {
	var reminder entity.Reminder
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&reminder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorz.ErrReminderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder %s: %w", id, err)
	}
	return &reminder, nil
}

// GetPendingByClient returns the client's reminders that have not fired yet,
// earliest first.
func (s *ReminderStorage) GetPendingByClient(ctx context.Context, clientID string) ([]entity.Reminder, error) {
	var reminders []entity.Reminder
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND is_triggered = ?", clientID, false).
		Order("trigger_date ASC").
		Find(&reminders).Error
	return reminders, err
}

// GetDue returns up to limit reminders that are due at now and not yet claimed.
// The result is only a candidate list: every item still has to be claimed.
func (s *ReminderStorage) GetDue(ctx context.Context, now time.Time, limit int) ([]entity.Reminder, error) {
	var reminders []entity.Reminder
	q := s.db.WithContext(ctx).
		Where("is_triggered = ? AND trigger_date <= ?", false, now).
		Order("trigger_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&reminders).Error
	return reminders, err
}

// Claim marks the reminder as triggered if, and only if, nobody else has.
//
// This is a single conditional UPDATE; the row count tells the caller whether
// it won. It is the only guard against double firing, so it must never be
// split into a read followed by a write.
func (s *ReminderStorage) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&entity.Reminder{}).
		Where("id = ? AND is_triggered = ?", id, false).
		Updates(map[string]interface{}{
			"is_triggered": true,
			"triggered_at": at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim reminder %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a reminder. Deleting is an operator action and is unrelated
// to firing.
func (s *ReminderStorage) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Reminder{})
	if res.Error != nil {
		return fmt.Errorf("delete reminder %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errorz.ErrReminderNotFound
	}
	return nil
}
