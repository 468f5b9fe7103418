package db

import (
	"github.com/MattewMattew/ManagmentBoard/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Issue{},
		&models.SyncRun{},
	)
}
