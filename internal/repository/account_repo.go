package repository

import (
	"context"
	"errors"

	"staffdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type accountRepo struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &accountRepo{db: db} }

func (r *accountRepo) Create(ctx context.Context, a *model.Account) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *accountRepo) Update(ctx context.Context, a *model.Account) error {
	return translate(r.db.WithContext(ctx).Save(a).Error)
}

func (r *accountRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var a model.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *accountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *accountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *accountRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.Account, error) {
	return r.findOne(ctx, "username = ? OR email = ?", username, email)
}

func (r *accountRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *accountRepo) findOne(ctx context.Context, query string, args ...interface{}) (*model.Account, error) {
	var a model.Account
	if err := r.db.WithContext(ctx).Where(query, args...).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}
