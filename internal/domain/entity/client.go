package entity

import "time"

// Client is the part of a client profile this service reads. The profile
// itself is owned by the portal's CRUD surface.
type Client struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
