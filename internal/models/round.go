package models

import "time"

// Round is one ordered stage of a recruitment drive.
// Rounds are soft-removed only, attendance history keeps pointing at them.
type Round struct {
	ID        uint   `gorm:"primaryKey"`
	JobID     uint   `gorm:"index;not null"`
	Name      string `gorm:"size:64;not null"`
	Order     int    `gorm:"column:round_order;not null"`
	IsRemoved bool   `gorm:"index;not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
