package auth

import (
	"context"

	"staffdesk/internal/model"
)

type accountKey struct{}

// WithAccount binds the resolved identity to ctx.
func WithAccount(ctx context.Context, a *model.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, a)
}

// AccountFrom returns the identity bound to ctx, or nil.
func AccountFrom(ctx context.Context) *model.Account {
	a, _ := ctx.Value(accountKey{}).(*model.Account)
	return a
}
