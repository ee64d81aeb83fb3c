package models

import "time"

// User — аккаунт владельца каналов.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UUID      string    `gorm:"column:uuid;type:char(36);uniqueIndex" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	Name         string `json:"name"`
	Email        string `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string `gorm:"column:password_hash" json:"-"`
}
