package database

import (
	"gorm.io/gorm"

	detectionrepo "github.com/unilert/unilert/internal/repository/detection"
)

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&detectionrepo.DetectionEntity{},
	)
}
