package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"staffdesk/internal/apierror"
	"staffdesk/internal/auth"
	"staffdesk/internal/dto"
	"staffdesk/internal/model"
	"staffdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RegistrationPolicy selects how accounts are registered and which field
// identifies them at login.
type RegistrationPolicy string

const (
	// PolicyName derives the username from the display name, always creates
	// admins, and logs in by email with an employee-record fallback.
	PolicyName RegistrationPolicy = "name"
	// PolicyUsername takes an explicit username and caller role, and logs in
	// by username.
	PolicyUsername RegistrationPolicy = "username"
)

func (p RegistrationPolicy) Valid() bool { return p == PolicyName || p == PolicyUsername }

// Notifier is told about completed registrations. Failures are logged and
// never fail the registration.
type Notifier interface {
	AccountRegistered(ctx context.Context, a *model.Account) error
}

type nopNotifier struct{}

func (nopNotifier) AccountRegistered(context.Context, *model.Account) error { return nil }

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	// Me returns the identity bound to ctx, or an Unauthorized error.
	Me(ctx context.Context) (*dto.AccountResponse, error)
	IssueToken(identityID string, role model.Role) (string, error)
	// ResolveIdentity maps a raw token to a live, active account, or nil.
	ResolveIdentity(ctx context.Context, token string) *model.Account
	Policy() RegistrationPolicy
}

type authService struct {
	accounts  repository.AccountRepository
	employees repository.EmployeeRepository
	hasher    auth.PasswordHasher
	tokens    *auth.TokenService
	policy    RegistrationPolicy
	notifier  Notifier
}

func NewAuthService(
	accounts repository.AccountRepository,
	employees repository.EmployeeRepository,
	hasher auth.PasswordHasher,
	tokens *auth.TokenService,
	policy RegistrationPolicy,
	notifier Notifier,
) AuthService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &authService{
		accounts:  accounts,
		employees: employees,
		hasher:    hasher,
		tokens:    tokens,
		policy:    policy,
		notifier:  notifier,
	}
}

func (s *authService) Policy() RegistrationPolicy { return s.policy }

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := normalizeEmail(req.Email)
	acct := &model.Account{Email: email, Active: true}
	var dupMsg string

	switch s.policy {
	case PolicyName:
		name := strings.TrimSpace(req.Name)
		if name == "" || email == "" || req.Password == "" {
			return nil, apierror.Validation("Missing name, email, or password")
		}
		if err := validateStruct(dto.RegisterRequest{Name: name, Email: email, Password: req.Password}); err != nil {
			return nil, err
		}
		username, err := freeUsername(ctx, s.accounts, DeriveUsername(name))
		if err != nil {
			return nil, apierror.Internal(err)
		}
		acct.Name, acct.Username, acct.Role = name, username, model.RoleAdmin
		dupMsg = "Name-derived username or email already exists"
	case PolicyUsername:
		username := strings.TrimSpace(req.Username)
		if username == "" || email == "" || req.Password == "" {
			return nil, apierror.Validation("Missing username, email, or password")
		}
		in := dto.RegisterRequest{Name: strings.TrimSpace(req.Name), Username: username, Email: email, Password: req.Password}
		if err := validateStruct(in); err != nil {
			return nil, err
		}
		role := model.RoleEmployee
		if req.Role != "" {
			role = model.Role(req.Role)
			if !role.Valid() {
				return nil, apierror.ValidationFields(map[string]string{"role": "must be one of admin, employee"})
			}
		}
		acct.Name, acct.Username, acct.Role = strings.TrimSpace(req.Name), username, role
		dupMsg = "Username or email already exists"
	default:
		return nil, apierror.Internal(errors.New("registration policy not configured"))
	}

	// The unique indexes are authoritative; this pre-check only gives the
	// common case a clean answer before hashing.
	if _, err := s.accounts.FindByUsernameOrEmail(ctx, acct.Username, acct.Email); err == nil {
		return nil, apierror.DuplicateIdentity(dupMsg)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.Internal(err)
	}

	hash, err := hashPassword(s.hasher, req.Password)
	if err != nil {
		return nil, err
	}
	acct.PasswordHash = hash

	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierror.DuplicateIdentity(dupMsg)
		}
		return nil, apierror.Internal(err)
	}

	if err := s.notifier.AccountRegistered(ctx, acct); err != nil {
		log.Warn().Err(err).Str("account_id", acct.ID.String()).Msg("registration notification not queued")
	}

	return &dto.RegisterResponse{
		Message: "Account registered successfully",
		Account: dto.NewAccountResponse(acct),
	}, nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	var (
		acct *model.Account
		err  error
	)
	email := normalizeEmail(req.Email)

	switch s.policy {
	case PolicyName:
		if email == "" || req.Password == "" {
			return nil, apierror.Validation("Missing email or password")
		}
		acct, err = s.accounts.FindByEmail(ctx, email)
	case PolicyUsername:
		username := strings.TrimSpace(req.Username)
		if username == "" || req.Password == "" {
			return nil, apierror.Validation("Missing username or password")
		}
		acct, err = s.accounts.FindByUsername(ctx, username)
	default:
		return nil, apierror.Internal(errors.New("registration policy not configured"))
	}

	switch {
	case err == nil && acct.Active:
		if !s.hasher.Verify(req.Password, acct.PasswordHash) {
			return nil, apierror.InvalidCredentials()
		}
		return s.loginResponse(dto.NewAccountResponse(acct))
	case err == nil, errors.Is(err, repository.ErrNotFound):
		// inactive accounts are treated as missing
	default:
		return nil, apierror.Internal(err)
	}

	if s.policy != PolicyName {
		return nil, apierror.InvalidCredentials()
	}
	return s.employeeLogin(ctx, email, req.Password)
}

// employeeLogin authenticates against credentials stored on an employee
// record. Such logins always carry the employee role.
func (s *authService) employeeLogin(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	emp, err := s.employees.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.InvalidCredentials()
	}
	if err != nil {
		return nil, apierror.Internal(err)
	}
	if emp.PasswordHash == nil || !s.hasher.Verify(password, *emp.PasswordHash) {
		return nil, apierror.InvalidCredentials()
	}
	return s.loginResponse(dto.AccountResponse{
		ID:    emp.ID.String(),
		Name:  emp.Name,
		Email: email,
		Role:  model.RoleEmployee,
	})
}

func (s *authService) loginResponse(acct dto.AccountResponse) (*dto.LoginResponse, error) {
	token, err := s.tokens.Issue(acct.ID, acct.Role)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return &dto.LoginResponse{Message: "Login successful", Token: token, Account: acct}, nil
}

func (s *authService) Me(ctx context.Context) (*dto.AccountResponse, error) {
	acct := auth.AccountFrom(ctx)
	if acct == nil {
		return nil, apierror.Unauthorized("Unauthorized: Please login first")
	}
	resp := dto.NewAccountResponse(acct)
	return &resp, nil
}

func (s *authService) IssueToken(identityID string, role model.Role) (string, error) {
	return s.tokens.Issue(identityID, role)
}

func (s *authService) ResolveIdentity(ctx context.Context, token string) *model.Account {
	claims, ok := s.tokens.Verify(token)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil
	}
	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("account_id", claims.AccountID).Msg("identity lookup failed")
		}
		return nil
	}
	if !acct.Active {
		return nil
	}
	return acct
}

// DeriveUsername lowercases name and strips all whitespace.
func DeriveUsername(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}

// freeUsername returns base, or base followed by the smallest positive
// counter that is not taken yet.
func freeUsername(ctx context.Context, accounts repository.AccountRepository, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		taken, err := accounts.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
