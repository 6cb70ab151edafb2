package database

import (
	"errors"
	"fmt"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"gorm.io/gorm"
)

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
// An existing user with the same name is left untouched.
func EnsureAdmin(db *gorm.DB, username, password string, cost int) error {
	if username == "" || password == "" {
		return nil
	}

	var existing models.User
	err := db.Where("LOWER(username) = LOWER(?)", username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("query admin: %w", err)
	}

	hash, err := util.HashPassword(password, cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  "Placement Admin",
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}
