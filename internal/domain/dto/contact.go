package dto

import (
	"strings"

	"github.com/cjfitness/notifier/internal/domain/entity"
)

// Contact is what the recipient directory knows about a client.
type Contact struct {
	ClientID    string
	Email       string
	DisplayName string
}

// HasAddress reports whether an external message can be sent to the contact.
func (c Contact) HasAddress() bool {
	return c.Email != ""
}

func NewContact(client entity.Client) Contact {
	return Contact{
		ClientID:    client.ID,
		Email:       strings.TrimSpace(client.Email),
		DisplayName: client.Name,
	}
}
