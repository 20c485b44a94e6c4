package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Employee is a managed staff record. It is not linked to an Account; the
// optional Email/PasswordHash pair only serves the legacy login fallback.
type Employee struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"not null;index"`
	Age          float64   `gorm:"not null"`
	Class        string    `gorm:"column:class;not null;index"`
	Subject      string    `gorm:"not null;index"`
	Attendance   string    `gorm:"not null"`
	Email        *string   `gorm:"index"`
	PasswordHash *string
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (Employee) TableName() string { return "employees" }

func (e *Employee) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
