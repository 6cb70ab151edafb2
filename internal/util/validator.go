package util

import (
	"fmt"
	"unicode/utf8"
)

const maxRoundNameLen = 64

// ValidateRoundName checks a round name (non-empty, at most 64 characters).
func ValidateRoundName(name string) error {
	if name == "" {
		return fmt.Errorf("round name is empty")
	}
	if utf8.RuneCountInString(name) > maxRoundNameLen {
		return fmt.Errorf("round name too long, max %d characters", maxRoundNameLen)
	}
	return nil
}

// ValidateRoundOrder checks that a round order is a positive integer.
func ValidateRoundOrder(order int) error {
	if order <= 0 {
		return fmt.Errorf("round order must be positive, got %d", order)
	}
	return nil
}

// ValidateUsername checks the 3-20 letters, digits or underscore rule.
func ValidateUsername(username string) error {
	if n := len(username); n < 3 || n > 20 {
		return fmt.Errorf("username must be 3-20 characters")
	}
	for _, ch := range username {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_':
		default:
			return fmt.Errorf("username may only contain letters, digits and underscore")
		}
	}
	return nil
}

// IsStrongPassword checks 8-32 characters with upper, lower and digit.
func IsStrongPassword(pwd string) bool {
	if len(pwd) < 8 || len(pwd) > 32 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pwd {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}
