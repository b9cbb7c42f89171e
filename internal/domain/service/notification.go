package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cjfitness/notifier/internal/adapters/metrics"
	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/entity"
	"github.com/cjfitness/notifier/internal/domain/utils/validator"
)

type NotificationStorage interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByUser(ctx context.Context, userID string) ([]entity.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	MarkReadMatching(ctx context.Context, userID, icon, needle string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// NotificationService owns in-app notifications and their read state.
// Unread counts are always computed from the stored rows; nothing here caches them.
type NotificationService struct {
	notificationStorage NotificationStorage
	now                 func() time.Time
}

func NewNotificationService(notificationStorage NotificationStorage) *NotificationService {
	return &NotificationService{
		notificationStorage: notificationStorage,
		now:                 time.Now,
	}
}

// Create stores a new unread notification, filling the id, creation time,
// type and icon when they are empty.
func (s *NotificationService) Create(ctx context.Context, notification *entity.Notification) (*entity.Notification, error) {
	notification.UserID = strings.TrimSpace(notification.UserID)
	if notification.UserID == "" {
		return nil, fmt.Errorf("%w: empty recipient", errorz.ErrInvalidNotification)
	}
	if !validator.MessageText(notification.Message) {
		return nil, fmt.Errorf("%w: message must be 1..1000 characters", errorz.ErrInvalidNotification)
	}

	notification.Read = false
	notification.Prepare(s.now())

	if err := s.notificationStorage.Create(ctx, notification); err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.WithLabelValues(string(notification.Type)).Inc()
	return notification, nil
}

// CreateFromRequest validates a producer payload and stores it.
func (s *NotificationService) CreateFromRequest(ctx context.Context, req dto.CreateNotification) (*entity.Notification, error) {
	if err := validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", errorz.ErrInvalidNotification, err)
	}
	return s.Create(ctx, req.Entity())
}

// ListByRecipient returns every notification of userID, newest first, with
// the unread count derived from the same rows.
func (s *NotificationService) ListByRecipient(ctx context.Context, userID string) (dto.NotificationList, error) {
	notifications, err := s.notificationStorage.GetByUser(ctx, userID)
	if err != nil {
		return dto.NotificationList{}, err
	}

	list := dto.NotificationList{Notifications: notifications}
	if list.Notifications == nil {
		list.Notifications = []entity.Notification{}
	}
	for _, n := range notifications {
		if !n.Read {
			list.Unread++
		}
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.notificationStorage.CountUnread(ctx, userID)
}

// MarkRead is idempotent: an already read or unknown id is not an error.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	_, err := s.notificationStorage.MarkRead(ctx, id)
	return err
}

// MarkAllRead returns the number of notifications that changed state.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.notificationStorage.MarkAllRead(ctx, userID)
}

// MarkReadMatching marks the unread notifications of userID with the given
// icon whose message contains req.Contains (case-insensitive). Opening a
// conversation uses it to clear the matching message notifications.
func (s *NotificationService) MarkReadMatching(ctx context.Context, userID string, req dto.MarkReadMatching) (int64, error) {
	if err := validator.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", errorz.ErrInvalidNotification, err)
	}
	return s.notificationStorage.MarkReadMatching(ctx, userID, req.Icon, req.Contains)
}

// Delete removes a notification. Like MarkRead, it is a no-op for an
// unknown id.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	_, err := s.notificationStorage.Delete(ctx, id)
	return err
}
