package dto

import "time"

// MessageKind selects the body template used by the notifier.
type MessageKind string

const (
	MessageKindReminder MessageKind = "reminder"
	MessageKindCheckIn  MessageKind = "checkin"
)

// Message is a human-readable message for a client's external address.
type Message struct {
	Kind    MessageKind
	To      Contact
	Subject string
	Text    string
}

type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusSkipped   DeliveryStatus = "skipped"
)

// DeliveryResult is the outcome of one external delivery attempt. A failed
// result carries the cause in Err; it is never returned as a Go error so the
// caller cannot accidentally abort on it.
type DeliveryResult struct {
	Status   DeliveryStatus
	Err      error
	Duration time.Duration
}

func Delivered(d time.Duration) DeliveryResult {
	return DeliveryResult{Status: DeliveryStatusDelivered, Duration: d}
}

func DeliveryFailed(err error, d time.Duration) DeliveryResult {
	return DeliveryResult{Status: DeliveryStatusFailed, Err: err, Duration: d}
}

func DeliverySkipped(reason error) DeliveryResult {
	return DeliveryResult{Status: DeliveryStatusSkipped, Err: reason}
}

func (r DeliveryResult) OK() bool {
	return r.Status == DeliveryStatusDelivered
}
