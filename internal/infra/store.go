package infra

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"staffdesk/internal/config"
	"staffdesk/internal/repository"
)

// Store bundles the repositories of one storage backend with its lifecycle.
type Store struct {
	Driver    string
	Accounts  repository.AccountRepository
	Employees repository.EmployeeRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks backend connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.ping(ctx) }

func (s *Store) Close(ctx context.Context) error { return s.close(ctx) }

// OpenStore connects to the backend selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return NewMongoStore(client, db), nil
	case config.StoreDriverPostgres:
		db, err := NewDatabase(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewGormStore(config.StoreDriverPostgres, db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewGormStore wraps an already migrated *gorm.DB.
func NewGormStore(driver string, db *gorm.DB) *Store {
	return &Store{
		Driver:    driver,
		Accounts:  repository.NewAccountRepository(db),
		Employees: repository.NewEmployeeRepository(db),
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Driver:    config.StoreDriverMongo,
		Accounts:  repository.NewMongoAccountRepository(db),
		Employees: repository.NewMongoEmployeeRepository(db),
		ping:      func(ctx context.Context) error { return client.Ping(ctx, nil) },
		close:     client.Disconnect,
	}
}
