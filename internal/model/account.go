package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the only authorization attribute an Account carries.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleEmployee }

// Account stores login-capable identities.
// Username and Email are each unique; Email is stored trimmed and lowercased.
type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         Role   `gorm:"type:varchar(20);not null"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Account) TableName() string { return "accounts" }

// BeforeCreate assigns the id client-side so every driver behaves the same.
func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// DisplayName is the name shown in account summaries, falling back to the username.
func (a *Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Username
}
