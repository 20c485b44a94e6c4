package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"staffdesk/internal/model"
)

// DefaultTokenTTL is the expiry horizon of identity tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims are the custom claims embedded in every identity token.
type Claims struct {
	AccountID string     `json:"account_id"`
	Role      model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for iat/exp and for verification.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

func (s *TokenService) Issue(identityID string, role model.Role) (string, error) {
	now := s.now()
	claims := Claims{
		AccountID: identityID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify returns ok=false for any malformed, tampered, expired or
// non-HMAC token. It never returns an error.
func (s *TokenService) Verify(token string) (*Claims, bool) {
	if token == "" {
		return nil, false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.AccountID == "" {
		return nil, false
	}
	return claims, true
}

// TokenFromHeader accepts only "Bearer <token>": exactly two space-separated
// parts with a case-sensitive scheme.
func TokenFromHeader(raw string) (string, bool) {
	parts := strings.Split(raw, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
