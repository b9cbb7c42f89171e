package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cjfitness/notifier/internal/adapters/metrics"
	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/entity"
	"github.com/cjfitness/notifier/pkg/logger/types"
)

const (
	AlarmPrefix = "ALARM: "

	DefaultCheckInMessage = "Happy Monday! Don't forget to submit your weekly check-in today to track your progress."
)

type dueReminderStorage interface {
	GetDue(ctx context.Context, now time.Time, limit int) ([]entity.Reminder, error)
	Claim(ctx context.Context, id string, at time.Time) (bool, error)
}

type recipientDirectory interface {
	Contact(ctx context.Context, clientID string) (dto.Contact, error)
	Contacts(ctx context.Context) ([]dto.Contact, error)
}

type notificationCreator interface {
	Create(ctx context.Context, notification *entity.Notification) (*entity.Notification, error)
}

type notifier interface {
	Send(ctx context.Context, msg dto.Message) dto.DeliveryResult
}

type broadcastMarker interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type TriggerConfig struct {
	// DeliveryTimeout bounds every external send.
	DeliveryTimeout time.Duration
	// MaxConcurrent is the number of reminders or clients handled at once.
	MaxConcurrent int
	// BatchSize caps how many due reminders one sweep loads; 0 means no cap.
	BatchSize int
	// StoreTimeout bounds each storage call made after a reminder or an
	// occurrence has been claimed.
	StoreTimeout time.Duration

	ReminderSubject string
	CheckInSubject  string
	CheckInMessage  string

	// MarkerTTL is how long a broadcast occurrence marker is kept.
	MarkerTTL time.Duration
}

func (c TriggerConfig) withDefaults() TriggerConfig {
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 30 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 8
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 10 * time.Second
	}
	if c.CheckInMessage == "" {
		c.CheckInMessage = DefaultCheckInMessage
	}
	if c.MarkerTTL <= 0 {
		c.MarkerTTL = 8 * 24 * time.Hour
	}
	return c
}

// TriggerService fires due reminders and the weekly check-in broadcast.
//
// Every item is handled on its own: a failed claim, lookup, delivery or insert
// is logged and counted, and never stops the remaining items.
type TriggerService struct {
	reminders     dueReminderStorage
	directory     recipientDirectory
	notifications notificationCreator
	notifier      notifier
	marker        broadcastMarker

	cfg    TriggerConfig
	logger *types.Logger
	now    func() time.Time
}

// NewTriggerService creates the engine. marker may be nil, in which case the
// broadcast is not deduplicated across runs.
func NewTriggerService(
	reminders dueReminderStorage,
	directory recipientDirectory,
	notifications notificationCreator,
	notifier notifier,
	marker broadcastMarker,
	cfg TriggerConfig,
	logger *types.Logger,
) *TriggerService {
	return &TriggerService{
		reminders:     reminders,
		directory:     directory,
		notifications: notifications,
		notifier:      notifier,
		marker:        marker,
		cfg:           cfg.withDefaults(),
		logger:        logger,
		now:           time.Now,
	}
}

// BroadcastKey identifies one scheduled occurrence of the check-in broadcast.
func BroadcastKey(occurrence time.Time) string {
	return fmt.Sprintf("checkin:%d", occurrence.Unix()/60)
}

type reminderOutcome struct {
	claimed        bool
	conflict       bool
	delivered      bool
	deliveryFailed bool
	notified       bool
	missing        bool
	failed         bool
}

// Tick runs one reminder sweep.
func (s *TriggerService) Tick(ctx context.Context) dto.TickReport {
	start := time.Now()
	now := s.now()

	var report dto.TickReport
	due, err := s.reminders.GetDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		s.logger.Errorf("failed to query due reminders: %v", err)
		report.Errors++
		report.Duration = time.Since(start)
		return report
	}
	report.Due = len(due)
	if len(due) == 0 {
		report.Duration = time.Since(start)
		return report
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.MaxConcurrent)
	for _, reminder := range due {
		reminder := reminder
		g.Go(func() error {
			out := s.fire(ctx, reminder, now)

			mu.Lock()
			defer mu.Unlock()
			if out.claimed {
				report.Claimed++
			}
			if out.conflict {
				report.Conflicts++
			}
			if out.delivered {
				report.Delivered++
			}
			if out.deliveryFailed {
				report.DeliveryFailures++
			}
			if out.notified {
				report.Notified++
			}
			if out.missing {
				report.MissingRecipients++
			}
			if out.failed {
				report.Errors++
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	s.logger.Infof("reminder sweep: due=%d claimed=%d conflicts=%d delivered=%d failed_deliveries=%d notified=%d errors=%d (%s)",
		report.Due, report.Claimed, report.Conflicts, report.Delivered, report.DeliveryFailures, report.Notified, report.Errors, report.Duration)
	return report
}

// fire processes one due reminder: claim, then delivery, then notification.
func (s *TriggerService) fire(ctx context.Context, reminder entity.Reminder, now time.Time) reminderOutcome {
	var out reminderOutcome

	claimed, err := s.reminders.Claim(ctx, reminder.ID, now)
	if err != nil {
		metrics.ReminderClaims.WithLabelValues("error").Inc()
		s.logger.Errorf("failed to claim reminder %s: %v", reminder.ID, err)
		out.failed = true
		return out
	}
	if !claimed {
		metrics.ReminderClaims.WithLabelValues("conflict").Inc()
		s.logger.Debugf("reminder %s was claimed by another sweep", reminder.ID)
		out.conflict = true
		return out
	}
	metrics.ReminderClaims.WithLabelValues("won").Inc()
	out.claimed = true

	// A won claim is final, so the sweep deadline no longer applies to this
	// reminder. Every step below carries its own timeout.
	ctx = context.WithoutCancel(ctx)

	lookupCtx, cancelLookup := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	contact, err := s.directory.Contact(lookupCtx, reminder.ClientID)
	cancelLookup()
	if err != nil {
		if errors.Is(err, errorz.ErrClientNotFound) {
			s.logger.Warnf("reminder %s: client %s not found, nothing sent", reminder.ID, reminder.ClientID)
			out.missing = true
			return out
		}
		s.logger.Errorf("reminder %s: failed to resolve client %s: %v", reminder.ID, reminder.ClientID, err)
		out.failed = true
		return out
	}

	result := s.deliver(ctx, dto.Message{
		Kind:    dto.MessageKindReminder,
		To:      contact,
		Subject: s.cfg.ReminderSubject,
		Text:    reminder.Description,
	})
	switch result.Status {
	case dto.DeliveryStatusDelivered:
		out.delivered = true
	case dto.DeliveryStatusFailed:
		s.logger.Warnf("reminder %s: delivery to client %s failed: %v", reminder.ID, reminder.ClientID, result.Err)
		out.deliveryFailed = true
	case dto.DeliveryStatusSkipped:
		s.logger.Debugf("reminder %s: delivery to client %s skipped: %v", reminder.ID, reminder.ClientID, result.Err)
	}

	insertCtx, cancelInsert := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancelInsert()
	_, err = s.notifications.Create(insertCtx, &entity.Notification{
		UserID:  reminder.ClientID,
		Message: AlarmPrefix + reminder.Description,
		Type:    entity.NotificationTypeAlert,
		Icon:    entity.DefaultNotificationIcon,
	})
	if err != nil {
		s.logger.Errorf("reminder %s: failed to create notification: %v", reminder.ID, err)
		out.failed = true
		return out
	}
	out.notified = true
	return out
}

// WeeklyBroadcast sends the check-in message to every client and creates one
// notification per client, at most once per occurrence when a marker is set.
func (s *TriggerService) WeeklyBroadcast(ctx context.Context, occurrence time.Time) dto.BroadcastReport {
	start := time.Now()
	report := dto.BroadcastReport{Occurrence: occurrence}
	defer func() {
		report.Duration = time.Since(start)
	}()

	if s.marker != nil {
		key := BroadcastKey(occurrence)
		claimed, err := s.marker.Claim(ctx, key, s.cfg.MarkerTTL)
		if err != nil {
			s.logger.Errorf("check-in broadcast %s skipped: failed to claim occurrence: %v", key, err)
			report.Skipped = true
			report.Errors++
			return report
		}
		if !claimed {
			s.logger.Infof("check-in broadcast %s already ran", key)
			report.Skipped = true
			return report
		}
	}

	contacts, err := s.directory.Contacts(ctx)
	if err != nil {
		s.logger.Errorf("check-in broadcast aborted: failed to list clients: %v", err)
		report.Errors++
		return report
	}
	report.Recipients = len(contacts)

	// A started occurrence is not run again, so every client is served even
	// when the broadcast deadline passes.
	work := context.WithoutCancel(ctx)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.MaxConcurrent)
	for _, contact := range contacts {
		contact := contact
		g.Go(func() error {
			delivered, deliveryFailed, notified := s.checkIn(work, contact)
			metrics.BroadcastRecipients.Inc()

			mu.Lock()
			defer mu.Unlock()
			if delivered {
				report.Delivered++
			}
			if deliveryFailed {
				report.DeliveryFailures++
			}
			if notified {
				report.Notified++
			} else {
				report.Errors++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Infof("check-in broadcast: recipients=%d delivered=%d failed_deliveries=%d notified=%d errors=%d",
		report.Recipients, report.Delivered, report.DeliveryFailures, report.Notified, report.Errors)
	return report
}

func (s *TriggerService) checkIn(ctx context.Context, contact dto.Contact) (delivered, deliveryFailed, notified bool) {
	result := s.deliver(ctx, dto.Message{
		Kind:    dto.MessageKindCheckIn,
		To:      contact,
		Subject: s.cfg.CheckInSubject,
		Text:    s.cfg.CheckInMessage,
	})
	switch result.Status {
	case dto.DeliveryStatusDelivered:
		delivered = true
	case dto.DeliveryStatusFailed:
		s.logger.Warnf("check-in delivery to client %s failed: %v", contact.ClientID, result.Err)
		deliveryFailed = true
	}

	insertCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	_, err := s.notifications.Create(insertCtx, &entity.Notification{
		UserID:  contact.ClientID,
		Message: s.cfg.CheckInMessage,
		Type:    entity.NotificationTypeInfo,
		Icon:    entity.DefaultNotificationIcon,
	})
	if err != nil {
		s.logger.Errorf("failed to create check-in notification for client %s: %v", contact.ClientID, err)
		return delivered, deliveryFailed, false
	}
	return delivered, deliveryFailed, true
}

func (s *TriggerService) deliver(ctx context.Context, msg dto.Message) dto.DeliveryResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan dto.DeliveryResult, 1)
	go func() {
		done <- s.notifier.Send(ctx, msg)
	}()

	var result dto.DeliveryResult
	select {
	case result = <-done:
	case <-ctx.Done():
		// the notifier ignored its context
		result = dto.DeliveryFailed(ctx.Err(), time.Since(start))
	}
	metrics.Deliveries.WithLabelValues(string(msg.Kind), string(result.Status)).Inc()
	return result
}
