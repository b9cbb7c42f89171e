package dto

import "time"

// TickReport summarises one reminder sweep.
type TickReport struct {
	Due               int
	Claimed           int
	Conflicts         int
	Delivered         int
	DeliveryFailures  int
	Notified          int
	MissingRecipients int
	Errors            int
	Duration          time.Duration
}

// BroadcastReport summarises one check-in broadcast.
type BroadcastReport struct {
	Occurrence       time.Time
	Skipped          bool
	Recipients       int
	Delivered        int
	DeliveryFailures int
	Notified         int
	Errors           int
	Duration         time.Duration
}
