package models

import "time"

// User roles carried in the JWT and checked by RequireRole.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User represents application user.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	DisplayName  string `gorm:"size:64"`
	Role         string `gorm:"size:16;index;not null;default:student"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	FailedLoginAttempts int        `gorm:"default:0"`
	LockedUntil         *time.Time `gorm:"index"`
	LastLoginAt         *time.Time
	LastLoginIP         string `gorm:"size:64"`
}

// IsAdmin reports whether the user may operate the drive console.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
