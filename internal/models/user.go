// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Email             string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash      string     `json:"-" gorm:"size:255;not null"`
	Role              UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'customer';index"`
	FullName          string     `json:"full_name" gorm:"size:100"`
	LastName          string     `json:"last_name" gorm:"size:100"`
	Phone             string     `json:"phone" gorm:"size:30"`
	RecipientDocument string     `json:"recipient_document" gorm:"size:30"`
	LastLoginAt       *time.Time `json:"last_login_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
