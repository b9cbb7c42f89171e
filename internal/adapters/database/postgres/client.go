package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/entity"
	"gorm.io/gorm"
)

// ClientStorage is a read-only view over the portal's clients table.
type ClientStorage struct {
	db *gorm.DB
}

func NewClientStorage(db *gorm.DB) *ClientStorage {
	return &ClientStorage{
		db: db,
	}
}

// Get is a function that gets a client from the database by id.
func (s *ClientStorage) Get(ctx context.Context, id string) (*entity.Client, error) {
	var client entity.Client
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorz.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	return &client, nil
}

// GetAll is a function that gets all clients from the database.
func (s *ClientStorage) GetAll(ctx context.Context) ([]entity.Client, error) {
	var clients []entity.Client
	err := s.db.WithContext(ctx).Order("id").Find(&clients).Error
	return clients, err
}
