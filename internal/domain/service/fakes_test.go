package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/entity"
)

var errStorage = errors.New("storage unavailable")

type fakeReminderStore struct {
	mu        sync.Mutex
	reminders map[string]*entity.Reminder
	dueErr    error
	claimErr  error
}

func newFakeReminderStore(reminders ...entity.Reminder) *fakeReminderStore {
	s := &fakeReminderStore{reminders: make(map[string]*entity.Reminder)}
	for i := range reminders {
		r := reminders[i]
		s.reminders[r.ID] = &r
	}
	return s
}

func (s *fakeReminderStore) Create(_ context.Context, reminder *entity.Reminder) (*entity.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reminder.ID == "" {
		reminder.ID = "r" + string(rune('a'+len(s.reminders)))
	}
	r := *reminder
	s.reminders[r.ID] = &r
	return reminder, nil
}

func (s *fakeReminderStore) Get(_ context.Context, id string) (*entity.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return nil, errorz.ErrReminderNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeReminderStore) GetPendingByClient(_ context.Context, clientID string) ([]entity.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Reminder
	for _, r := range s.reminders {
		if r.ClientID == clientID && !r.IsTriggered {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggerDate.Before(out[j].TriggerDate) })
	return out, nil
}

func (s *fakeReminderStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[id]; !ok {
		return errorz.ErrReminderNotFound
	}
	delete(s.reminders, id)
	return nil
}

func (s *fakeReminderStore) GetDue(_ context.Context, now time.Time, limit int) ([]entity.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dueErr != nil {
		return nil, s.dueErr
	}
	var out []entity.Reminder
	for _, r := range s.reminders {
		if r.IsDue(now) {
			out = append(out, *r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Claim mirrors the conditional UPDATE of the postgres storage.
func (s *fakeReminderStore) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return false, s.claimErr
	}
	r, ok := s.reminders[id]
	if !ok || r.IsTriggered {
		return false, nil
	}
	r.IsTriggered = true
	r.TriggeredAt = &at
	return true, nil
}

func (s *fakeReminderStore) get(id string) entity.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.reminders[id]
}

type fakeClientStore struct {
	clients map[string]entity.Client
	err     error
}

func newFakeClientStore(clients ...entity.Client) *fakeClientStore {
	s := &fakeClientStore{clients: make(map[string]entity.Client)}
	for _, c := range clients {
		s.clients[c.ID] = c
	}
	return s
}

func (s *fakeClientStore) Get(ctx context.Context, id string) (*entity.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.clients[id]
	if !ok {
		return nil, errorz.ErrClientNotFound
	}
	return &c, nil
}

func (s *fakeClientStore) GetAll(_ context.Context) ([]entity.Client, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]entity.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []*entity.Notification
	createErr     error
}

// Create fails on a finished context the way a database driver does.
func (s *fakeNotificationStore) Create(ctx context.Context, notification *entity.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	n := *notification
	s.notifications = append(s.notifications, &n)
	return nil
}

func (s *fakeNotificationStore) GetByUser(_ context.Context, userID string) ([]entity.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, *s.notifications[i])
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) CountUnread(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, notification := range s.notifications {
		if notification.UserID == userID && !notification.Read {
			n++
		}
	}
	return n, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, id string) (int64, error) {
	return s.update(func(n *entity.Notification) bool { return n.ID == id }), nil
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, userID string) (int64, error) {
	return s.update(func(n *entity.Notification) bool { return n.UserID == userID }), nil
}

func (s *fakeNotificationStore) MarkReadMatching(_ context.Context, userID, icon, needle string) (int64, error) {
	return s.update(func(n *entity.Notification) bool {
		return n.UserID == userID && n.Icon == icon && strings.Contains(strings.ToLower(n.Message), strings.ToLower(needle))
	}), nil
}

func (s *fakeNotificationStore) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *fakeNotificationStore) update(match func(n *entity.Notification) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, n := range s.notifications {
		if !n.Read && match(n) {
			n.Read = true
			changed++
		}
	}
	return changed
}

func (s *fakeNotificationStore) forUser(userID string) []entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out
}

func (s *fakeNotificationStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

type fakeNotifier struct {
	mu        sync.Mutex
	sent      []dto.Message
	failFor   map[string]bool
	delay     time.Duration
	ignoreCtx bool
}

func (n *fakeNotifier) Send(ctx context.Context, msg dto.Message) dto.DeliveryResult {
	if n.delay > 0 {
		if n.ignoreCtx {
			time.Sleep(n.delay)
		} else {
			select {
			case <-time.After(n.delay):
			case <-ctx.Done():
				return dto.DeliveryFailed(ctx.Err(), n.delay)
			}
		}
	}
	if !msg.To.HasAddress() {
		return dto.DeliverySkipped(errorz.ErrNoRecipientAddress)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	if n.failFor[msg.To.ClientID] || n.failFor["*"] {
		return dto.DeliveryFailed(errors.New("smtp: 421 service not available"), 0)
	}
	return dto.Delivered(0)
}

func (n *fakeNotifier) messages() []dto.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dto.Message(nil), n.sent...)
}

type fakeMarker struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func (m *fakeMarker) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.claimed == nil {
		m.claimed = make(map[string]bool)
	}
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}
