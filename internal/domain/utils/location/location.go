package location

import (
	"sync"
	"time"
)

var (
	mu       sync.RWMutex
	location = time.UTC
)

// Init loads the named IANA time zone and makes it the service-wide location.
// An empty name keeps UTC.
func Init(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	mu.Lock()
	location = loc
	mu.Unlock()
	return nil
}

// Location returns the service-wide time zone used for schedules and e-mails.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return location
}
