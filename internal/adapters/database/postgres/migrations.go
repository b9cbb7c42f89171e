package postgres

import "github.com/cjfitness/notifier/internal/domain/entity"

// Migrations is a list of all gorm migrations for the database. The clients
// table belongs to the portal and is not migrated here.
var Migrations = []interface{}{
	&entity.Reminder{},
	&entity.Notification{},
}
