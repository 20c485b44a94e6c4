package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"staffdesk/internal/model"
)

// NewDatabase opens a GORM connection backed by pgx and migrates the schema.
// TranslateError lets unique violations surface as gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the accounts and employees tables, including the
// unique indexes on accounts.username and accounts.email.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Account{}, &model.Employee{}); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return nil
}
