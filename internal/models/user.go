package models

import "gorm.io/gorm"

// User is the dashboard operator. There is no role model: whoever can log in
// manages the whole register.
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:50;not null"`
	PasswordHash string `gorm:"not null"`
}
