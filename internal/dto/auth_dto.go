package dto

import "staffdesk/internal/model"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// RegisterRequest covers both registration policies. Which fields are
// required depends on REGISTRATION_POLICY. The service validates the tags
// after trimming, for every transport.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"max=100"`
	Username string `json:"username" validate:"max=150"`
	Email    string `json:"email"    validate:"omitempty,email"`
	Password string `json:"password" validate:"max=72"`
	Role     string `json:"role"`
}

// LoginRequest carries either email or username, per the registration policy.
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// AccountResponse never carries the password hash.
type AccountResponse struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Username string     `json:"username,omitempty"`
	Email    string     `json:"email,omitempty"`
	Role     model.Role `json:"role"`
}

type RegisterResponse struct {
	Message string          `json:"message"`
	Account AccountResponse `json:"account"`
}

type LoginResponse struct {
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

func NewAccountResponse(a *model.Account) AccountResponse {
	return AccountResponse{
		ID:       a.ID.String(),
		Name:     a.DisplayName(),
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}
