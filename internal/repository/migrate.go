package repository

import "gorm.io/gorm"

// Migrate creates or updates every table the repositories use.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userModel{},
		&serviceModel{},
		&appointmentModel{},
		&reviewModel{},
		&notificationModel{},
	)
}
