package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/entity"
	"github.com/cjfitness/notifier/internal/domain/utils/validator"
)

type ReminderStorage interface {
	Create(ctx context.Context, reminder *entity.Reminder) (*entity.Reminder, error)
	Get(ctx context.Context, id string) (*entity.Reminder, error)
	GetPendingByClient(ctx context.Context, clientID string) ([]entity.Reminder, error)
	Delete(ctx context.Context, id string) error
}

// ReminderService is the operator path for reminders. Firing is done only by
// the TriggerService.
type ReminderService struct {
	reminderStorage ReminderStorage
}

func NewReminderService(reminderStorage ReminderStorage) *ReminderService {
	return &ReminderService{
		reminderStorage: reminderStorage,
	}
}

func (s *ReminderService) Create(ctx context.Context, req dto.CreateReminder) (*entity.Reminder, error) {
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Description = strings.TrimSpace(req.Description)
	if err := validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", errorz.ErrInvalidReminder, err)
	}

	// A trigger date in the past is accepted; the next sweep fires it.
	return s.reminderStorage.Create(ctx, req.Entity())
}

func (s *ReminderService) Get(ctx context.Context, id string) (*entity.Reminder, error) {
	return s.reminderStorage.Get(ctx, id)
}

// ListPending returns the client's reminders that have not fired, earliest first.
func (s *ReminderService) ListPending(ctx context.Context, clientID string) ([]entity.Reminder, error) {
	reminders, err := s.reminderStorage.GetPendingByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if reminders == nil {
		reminders = []entity.Reminder{}
	}
	return reminders, nil
}

func (s *ReminderService) Delete(ctx context.Context, id string) error {
	return s.reminderStorage.Delete(ctx, id)
}
