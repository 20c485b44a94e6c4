package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	AccountsCollection  = "accounts"
	EmployeesCollection = "employees"
)

// EnsureMongoIndexes creates the unique identity indexes and the employee
// lookup indexes. Safe to call on every start.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	accounts := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := db.Collection(AccountsCollection).Indexes().CreateMany(ctx, accounts); err != nil {
		return fmt.Errorf("accounts indexes: %w", err)
	}

	employees := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "class", Value: 1}}},
		{Keys: bson.D{{Key: "subject", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := db.Collection(EmployeesCollection).Indexes().CreateMany(ctx, employees); err != nil {
		return fmt.Errorf("employees indexes: %w", err)
	}
	return nil
}

// translateMongo maps driver errors onto the package sentinels.
func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	default:
		return err
	}
}

// mongoNow truncates to the millisecond precision BSON dates carry.
func mongoNow() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
