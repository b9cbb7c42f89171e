package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/entity"
)

func TestReminderService(t *testing.T) {
	ctx := context.Background()
	store := newFakeReminderStore()
	s := NewReminderService(store)

	later, err := s.Create(ctx, dto.CreateReminder{ClientID: "c1", Description: " Weigh in ", TriggerDate: testNow.Add(48 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "Weigh in", later.Description)

	sooner, err := s.Create(ctx, dto.CreateReminder{ClientID: "c1", Description: "Drink water", TriggerDate: testNow.Add(time.Hour)})
	require.NoError(t, err)

	t.Run("rejects invalid input", func(t *testing.T) {
		for name, req := range map[string]dto.CreateReminder{
			"no client":      {Description: "x", TriggerDate: testNow},
			"no description": {ClientID: "c1", Description: "   ", TriggerDate: testNow},
			"no date":        {ClientID: "c1", Description: "x"},
		} {
			_, err := s.Create(ctx, req)
			assert.ErrorIs(t, err, errorz.ErrInvalidReminder, name)
		}
	})

	t.Run("list pending earliest first", func(t *testing.T) {
		pending, err := s.ListPending(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, sooner.ID, pending[0].ID)
		assert.Equal(t, entity.ReminderStatePending, pending[0].State(testNow))

		_, err = store.Claim(ctx, sooner.ID, testNow)
		require.NoError(t, err)
		pending, err = s.ListPending(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, pending, 1)

		none, err := s.ListPending(ctx, "c9")
		require.NoError(t, err)
		assert.NotNil(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, later.ID))
		assert.ErrorIs(t, s.Delete(ctx, later.ID), errorz.ErrReminderNotFound)

		_, err := s.Get(ctx, later.ID)
		assert.ErrorIs(t, err, errorz.ErrReminderNotFound)
	})
}

func TestClientService(t *testing.T) {
	ctx := context.Background()
	s := NewClientService(newFakeClientStore(
		entity.Client{ID: "c1", Name: "Ana", Email: " ana@example.com "},
		entity.Client{ID: "c2", Name: "Ben"},
	))

	contact, err := s.Contact(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, dto.Contact{ClientID: "c1", Email: "ana@example.com", DisplayName: "Ana"}, contact)

	_, err = s.Contact(ctx, "ghost")
	assert.ErrorIs(t, err, errorz.ErrClientNotFound)

	contacts, err := s.Contacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.False(t, contacts[1].HasAddress())
}
