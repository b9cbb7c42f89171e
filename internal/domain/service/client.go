package service

import (
	"context"

	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/entity"
)

type ClientStorage interface {
	Get(ctx context.Context, id string) (*entity.Client, error)
	GetAll(ctx context.Context) ([]entity.Client, error)
}

// ClientService is the read-only recipient directory.
type ClientService struct {
	clientStorage ClientStorage
}

func NewClientService(clientStorage ClientStorage) *ClientService {
	return &ClientService{
		clientStorage: clientStorage,
	}
}

// Contact returns errorz.ErrClientNotFound when the client does not exist.
func (s *ClientService) Contact(ctx context.Context, clientID string) (dto.Contact, error) {
	client, err := s.clientStorage.Get(ctx, clientID)
	if err != nil {
		return dto.Contact{}, err
	}
	return dto.NewContact(*client), nil
}

func (s *ClientService) Contacts(ctx context.Context) ([]dto.Contact, error) {
	clients, err := s.clientStorage.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	contacts := make([]dto.Contact, 0, len(clients))
	for _, client := range clients {
		contacts = append(contacts, dto.NewContact(client))
	}
	return contacts, nil
}
