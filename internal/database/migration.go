package database

import (
	"fmt"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Job{},
		&models.Application{},
		&models.Round{},
		&models.RoundSession{},
		&models.RoundAttendance{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// order is unique only among rounds that are still part of the drive
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_round_job_order_live ON rounds(job_id, round_order) WHERE is_removed = 0",
	).Error; err != nil {
		return fmt.Errorf("create round order index: %w", err)
	}
	return nil
}
