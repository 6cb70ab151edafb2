package models

import "time"

// Job is owned by the job-posting collaborator; the drive engine only reads it.
type Job struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"size:128;not null"`
	Company   string `gorm:"size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Application links a student to a job they applied for.
type Application struct {
	ID        uint `gorm:"primaryKey"`
	JobID     uint `gorm:"uniqueIndex:idx_application_job_user;not null"`
	UserID    uint `gorm:"uniqueIndex:idx_application_job_user;index;not null"`
	CreatedAt time.Time
}
