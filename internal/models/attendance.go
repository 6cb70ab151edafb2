package models

import "time"

// AttendanceStatus is the outcome stored on a RoundAttendance row.
type AttendanceStatus string

const (
	AttendanceAttended AttendanceStatus = "ATTENDED"
	AttendancePassed   AttendanceStatus = "PASSED"
	AttendanceFailed   AttendanceStatus = "FAILED"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceAttended, AttendancePassed, AttendanceFailed:
		return true
	}
	return false
}

// IsDecision reports whether s is an admin pass/fail decision.
func (s AttendanceStatus) IsDecision() bool {
	return s == AttendancePassed || s == AttendanceFailed
}

// RoundAttendance records that a student was scanned into a round.
// The (user_id, round_id) unique index keeps at most one row per pair.
type RoundAttendance struct {
	ID        uint             `gorm:"primaryKey"`
	UserID    uint             `gorm:"uniqueIndex:idx_attendance_user_round;not null"`
	JobID     uint             `gorm:"index;not null"`
	RoundID   uint             `gorm:"uniqueIndex:idx_attendance_user_round;index;not null"`
	SessionID uint             `gorm:"index;not null"`
	Status    AttendanceStatus `gorm:"size:16;index;not null"`
	MarkedAt  time.Time        `gorm:"not null"`
	UpdatedAt time.Time
}
