package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/cjfitness/notifier/internal/domain/entity"
	"gorm.io/gorm"
)

type NotificationStorage struct {
	db *gorm.DB
}

func NewNotificationStorage(db *gorm.DB) *NotificationStorage {
	return &NotificationStorage{
		db: db,
	}
}

func (s *NotificationStorage) Create(ctx context.Context, notification *entity.Notification) error {
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// GetByUser returns every notification of a recipient, newest first.
func (s *NotificationStorage) GetByUser(ctx context.Context, userID string) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// CountUnread counts the unread notifications of a recipient.
func (s *NotificationStorage) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips one notification to read. Unknown or already read ids are
// not an error; the returned count is 0 for them.
func (s *NotificationStorage) MarkRead(ctx context.Context, id string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND read = ?", id, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// MarkAllRead flips every unread notification of a recipient to read.
func (s *NotificationStorage) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// MarkReadMatching flips the unread notifications of a recipient that carry
// the given icon and whose message contains needle (case-insensitive).
func (s *NotificationStorage) MarkReadMatching(ctx context.Context, userID, icon, needle string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND icon = ? AND read = ? AND message ILIKE ?", userID, icon, false, "%"+escapeLike(needle)+"%").
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (s *NotificationStorage) Delete(ctx context.Context, id string) (int64, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
