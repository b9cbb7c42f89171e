package errorz

import "errors"

var (
	ErrClientNotFound   = errors.New("client not found")
	ErrReminderNotFound = errors.New("reminder not found")

	ErrInvalidNotification = errors.New("invalid notification")
	ErrInvalidReminder     = errors.New("invalid reminder")
	ErrInvalidSchedule     = errors.New("invalid schedule expression")

	// ErrNoRecipientAddress is returned by the notifier when a contact has no e-mail.
	ErrNoRecipientAddress = errors.New("recipient has no address")
)
