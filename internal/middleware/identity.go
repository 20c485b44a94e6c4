package middleware

import (
	"context"

	"staffdesk/internal/apierror"
	"staffdesk/internal/auth"
	"staffdesk/internal/model"

	"github.com/gin-gonic/gin"
)

const AccountKey = "account"

// IdentityResolver maps a raw bearer token to a live account, or nil.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) *model.Account
}

// BindIdentity attaches the caller's account, if any, to the gin context and
// to the request context. It never rejects a request: a missing, malformed,
// expired or orphaned token simply binds no identity.
func BindIdentity(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.TokenFromHeader(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		if acct := resolver.ResolveIdentity(c.Request.Context(), token); acct != nil {
			c.Set(AccountKey, acct)
			c.Request = c.Request.WithContext(auth.WithAccount(c.Request.Context(), acct))
		}
		c.Next()
	}
}

// CurrentAccount returns the identity bound by BindIdentity, or nil.
func CurrentAccount(c *gin.Context) *model.Account {
	v, ok := c.Get(AccountKey)
	if !ok {
		return nil
	}
	acct, _ := v.(*model.Account)
	return acct
}

// Authorize enforces the policy entry for op.
func Authorize(policy auth.Policy, op auth.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := policy.Check(c.Request.Context(), op); err != nil {
			e := apierror.From(err)
			c.AbortWithStatusJSON(e.Kind.HTTPStatus(), apierror.Envelope(e))
			return
		}
		c.Next()
	}
}
