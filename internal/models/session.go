package models

import "time"

// SessionStatus is the stored state of a round session.
// A round without any session row is in the implicit NONE state.
type SessionStatus string

const (
	SessionActive     SessionStatus = "ACTIVE"
	SessionTempClosed SessionStatus = "TEMP_CLOSED"
	SessionPermClosed SessionStatus = "PERM_CLOSED"
)

// Live reports whether the session still blocks a new start.
func (s SessionStatus) Live() bool {
	return s == SessionActive || s == SessionTempClosed
}

// RoundSession is the attendance window of a round.
type RoundSession struct {
	ID        uint          `gorm:"primaryKey"`
	RoundID   uint          `gorm:"index;not null"`
	JobID     uint          `gorm:"index;not null"`
	Status    SessionStatus `gorm:"size:16;index;not null"`
	StartTime time.Time     `gorm:"not null"`
	EndTime   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
