package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	IsStaff   bool      `gorm:"default:false" json:"is_staff"` // staff checks happen in the caller layer
	CreatedAt time.Time `json:"created_at"`
}
