package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"staffdesk/internal/apierror"
	"staffdesk/internal/auth"
	"staffdesk/internal/dto"
	"staffdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc       AuthService
	accounts  *stubAccountRepo
	employees *stubEmployeeRepo
	hasher    auth.PasswordHasher
	tokens    *auth.TokenService
	notifier  *recordingNotifier
}

func newAuthFixture(policy RegistrationPolicy) *authFixture {
	f := &authFixture{
		accounts:  newStubAccountRepo(),
		employees: newStubEmployeeRepo(),
		hasher:    auth.NewBcryptHasher(4),
		tokens:    auth.NewTokenService("test-secret", time.Hour),
		notifier:  &recordingNotifier{},
	}
	f.svc = NewAuthService(f.accounts, f.employees, f.hasher, f.tokens, policy, f.notifier)
	return f
}

func assertKind(t *testing.T, err error, kind apierror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, kind), "want %s, got %v", kind, err)
}

// ── Registration: name policy ────────────────────────────────────────────────

func TestRegisterByName_DerivesUniqueUsernames(t *testing.T) {
	f := newAuthFixture(PolicyName)
	ctx := context.Background()

	first, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "Ann Lee", Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)
	second, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "Ann  Lee", Email: "ann2@x.com", Password: "pw"})
	require.NoError(t, err)
	third, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "ann lee", Email: "ann3@x.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "annlee", first.Account.Username)
	assert.Equal(t, "annlee1", second.Account.Username)
	assert.Equal(t, "annlee2", third.Account.Username)
	assert.Equal(t, "Account registered successfully", first.Message)
	assert.Equal(t, "Ann Lee", first.Account.Name)
}

func TestRegisterByName_AlwaysAdmin(t *testing.T) {
	f := newAuthFixture(PolicyName)
	resp, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Bob", Email: " Bob@X.com ", Password: "pw", Role: "employee",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, resp.Account.Role)
	assert.Equal(t, "bob@x.com", resp.Account.Email)

	stored, err := f.accounts.FindByEmail(context.Background(), "bob@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("pw", stored.PasswordHash))
	assert.True(t, stored.Active)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	for _, policy := range []RegistrationPolicy{PolicyName, PolicyUsername} {
		t.Run(string(policy), func(t *testing.T) {
			f := newAuthFixture(policy)
			ctx := context.Background()
			_, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "Ann", Username: "ann", Email: "a@x.com", Password: "pw"})
			require.NoError(t, err)

			_, err = f.svc.Register(ctx, dto.RegisterRequest{Name: "Other", Username: "other", Email: "A@x.com", Password: "pw"})
			assertKind(t, err, apierror.KindDuplicateIdentity)
		})
	}
}

func TestRegister_MissingFields(t *testing.T) {
	byName := newAuthFixture(PolicyName)
	_, err := byName.svc.Register(context.Background(), dto.RegisterRequest{Email: "a@x.com", Password: "pw"})
	assertKind(t, err, apierror.KindValidation)
	_, err = byName.svc.Register(context.Background(), dto.RegisterRequest{Name: "A", Email: "a@x.com"})
	assertKind(t, err, apierror.KindValidation)

	byUsername := newAuthFixture(PolicyUsername)
	_, err = byUsername.svc.Register(context.Background(), dto.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw"})
	assertKind(t, err, apierror.KindValidation)
}

func TestRegister_InvalidEmail(t *testing.T) {
	f := newAuthFixture(PolicyName)
	_, err := f.svc.Register(context.Background(), dto.RegisterRequest{Name: "A", Email: "not-an-email", Password: "pw"})
	assertKind(t, err, apierror.KindValidation)
}

func TestRegister_PaddedEmailIsNormalized(t *testing.T) {
	f := newAuthFixture(PolicyName)
	res, err := f.svc.Register(context.Background(), dto.RegisterRequest{Name: "Bob", Email: "  Bob@X.com ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", res.Account.Email)
}

func TestRegister_FieldLimits(t *testing.T) {
	cases := map[string]dto.RegisterRequest{
		"password": {Name: "Ann Lee", Username: "ann", Email: "ann@x.com", Password: strings.Repeat("a", 80)},
		"name":     {Name: strings.Repeat("n", 101), Username: "ann", Email: "ann@x.com", Password: "pw"},
		"username": {Username: strings.Repeat("u", 151), Email: "ann@x.com", Password: "pw"},
	}
	for field, req := range cases {
		t.Run(field, func(t *testing.T) {
			f := newAuthFixture(PolicyUsername)
			_, err := f.svc.Register(context.Background(), req)
			assertKind(t, err, apierror.KindValidation)
			assert.Equal(t, "max", apierror.From(err).Fields[field])
			assert.Empty(t, f.accounts.accounts)
		})
	}

	f := newAuthFixture(PolicyName)
	_, err := f.svc.Register(context.Background(), dto.RegisterRequest{Name: "Ann Lee", Email: "ann@x.com", Password: strings.Repeat("a", 80)})
	assertKind(t, err, apierror.KindValidation)
}

// ── Registration: username policy ────────────────────────────────────────────

func TestRegisterByUsername_Roles(t *testing.T) {
	f := newAuthFixture(PolicyUsername)
	ctx := context.Background()

	def, err := f.svc.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleEmployee, def.Account.Role)
	assert.Equal(t, "alice", def.Account.Name, "display name falls back to username")

	admin, err := f.svc.Register(ctx, dto.RegisterRequest{Username: "root", Email: "r@x.com", Password: "pw", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Account.Role)

	_, err = f.svc.Register(ctx, dto.RegisterRequest{Username: "eve", Email: "e@x.com", Password: "pw", Role: "superuser"})
	assertKind(t, err, apierror.KindValidation)
}

func TestRegisterByUsername_DuplicateUsername(t *testing.T) {
	f := newAuthFixture(PolicyUsername)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "b@x.com", Password: "pw"})
	assertKind(t, err, apierror.KindDuplicateIdentity)
}

func TestRegister_NotifiesAndIgnoresNotifierFailure(t *testing.T) {
	f := newAuthFixture(PolicyUsername)
	f.notifier.err = errors.New("queue down")

	_, err := f.svc.Register(context.Background(), dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, f.notifier.accounts)
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	f := newAuthFixture(PolicyUsername)
	f.accounts.failWith = errors.New("connection refused")
	_, err := f.svc.Register(context.Background(), dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})
	assertKind(t, err, apierror.KindInternal)
	assert.Equal(t, "Internal server error", err.Error())
}

// ── Login ────────────────────────────────────────────────────────────────────

func TestLoginByUsername_EndToEnd(t *testing.T) {
	f := newAuthFixture(PolicyUsername)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Login successful", resp.Message)

	claims, ok := f.tokens.Verify(resp.Token)
	require.True(t, ok)
	assert.Equal(t, resp.Account.ID, claims.AccountID)
	assert.Equal(t, model.RoleEmployee, claims.Role)

	_, err = f.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "wrong"})
	assertKind(t, err, apierror.KindInvalidCredentials)
}

func TestLogin_SameErrorForMissingAndWrongPassword(t *testing.T) {
	f := newAuthFixture(PolicyName)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "Ann", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, wrong := f.svc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "nope"})
	_, missing := f.svc.Login(ctx, dto.LoginRequest{Email: "ghost@x.com", Password: "nope"})
	assertKind(t, wrong, apierror.KindInvalidCredentials)
	assertKind(t, missing, apierror.KindInvalidCredentials)
	assert.Equal(t, wrong.Error(), missing.Error())
}

func TestLoginByName_RoleMatchesStoredAccount(t *testing.T) {
	f := newAuthFixture(PolicyName)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "Ann", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, dto.LoginRequest{Email: "  A@X.COM ", Password: "pw"})
	require.NoError(t, err)
	claims, ok := f.tokens.Verify(resp.Token)
	require.True(t, ok)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func seedEmployeeWithPassword(t *testing.T, f *authFixture, email, password string) *model.Employee {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	e := &model.Employee{Name: "Legacy Worker", Age: 40, Class: "A", Subject: "Math", Attendance: "present", Email: &email, PasswordHash: &hash}
	require.NoError(t, f.employees.Create(context.Background(), e))
	return e
}

func TestLoginByName_EmployeeFallback(t *testing.T) {
	f := newAuthFixture(PolicyName)
	ctx := context.Background()
	emp := seedEmployeeWithPassword(t, f, "legacy@x.com", "pw")
	_, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "Someone", Email: "other@x.com", Password: "pw"})
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, dto.LoginRequest{Email: "legacy@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, emp.ID.String(), resp.Account.ID)
	assert.Equal(t, model.RoleEmployee, resp.Account.Role)

	claims, ok := f.tokens.Verify(resp.Token)
	require.True(t, ok)
	assert.Equal(t, model.RoleEmployee, claims.Role)
	assert.Equal(t, emp.ID.String(), claims.AccountID)

	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "legacy@x.com", Password: "bad"})
	assertKind(t, err, apierror.KindInvalidCredentials)
}

func TestLoginByName_AccountWinsOverEmployee(t *testing.T) {
	f := newAuthFixture(PolicyName)
	ctx := context.Background()
	seedEmployeeWithPassword(t, f, "shared@x.com", "employee-pw")
	_, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "Boss", Email: "shared@x.com", Password: "account-pw"})
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, dto.LoginRequest{Email: "shared@x.com", Password: "account-pw"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, resp.Account.Role)

	// the employee password is never consulted once an account matches
	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "shared@x.com", Password: "employee-pw"})
	assertKind(t, err, apierror.KindInvalidCredentials)
}

func TestLoginByName_EmployeeWithoutPassword(t *testing.T) {
	f := newAuthFixture(PolicyName)
	email := "nopw@x.com"
	require.NoError(t, f.employees.Create(context.Background(), &model.Employee{Name: "N", Age: 1, Class: "A", Subject: "B", Attendance: "x", Email: &email}))

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: email, Password: "anything"})
	assertKind(t, err, apierror.KindInvalidCredentials)
}

func TestLoginByUsername_NoEmployeeFallback(t *testing.T) {
	f := newAuthFixture(PolicyUsername)
	seedEmployeeWithPassword(t, f, "legacy@x.com", "pw")
	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Username: "legacy@x.com", Email: "legacy@x.com", Password: "pw"})
	assertKind(t, err, apierror.KindInvalidCredentials)
}

func TestLogin_InactiveAccountTreatedAsMissing(t *testing.T) {
	f := newAuthFixture(PolicyUsername)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	acct, err := f.accounts.FindByID(ctx, uuid.MustParse(resp.Account.ID))
	require.NoError(t, err)
	acct.Active = false
	require.NoError(t, f.accounts.Update(ctx, acct))

	_, err = f.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "pw"})
	assertKind(t, err, apierror.KindInvalidCredentials)
}

func TestLogin_MissingFields(t *testing.T) {
	_, err := newAuthFixture(PolicyName).svc.Login(context.Background(), dto.LoginRequest{Password: "pw"})
	assertKind(t, err, apierror.KindValidation)
	_, err = newAuthFixture(PolicyUsername).svc.Login(context.Background(), dto.LoginRequest{Username: "a"})
	assertKind(t, err, apierror.KindValidation)
}

func TestLogin_StoreFailureIsInternal(t *testing.T) {
	f := newAuthFixture(PolicyName)
	f.accounts.failWith = errors.New("timeout")
	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "a@x.com", Password: "pw"})
	assertKind(t, err, apierror.KindInternal)
}

// ── Identity resolution and me ───────────────────────────────────────────────

func TestResolveIdentity(t *testing.T) {
	f := newAuthFixture(PolicyUsername)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	login, err := f.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	acct := f.svc.ResolveIdentity(ctx, login.Token)
	require.NotNil(t, acct)
	assert.Equal(t, reg.Account.ID, acct.ID.String())

	assert.Nil(t, f.svc.ResolveIdentity(ctx, "garbage"))
	assert.Nil(t, f.svc.ResolveIdentity(ctx, ""))

	f.accounts.delete(acct.ID)
	assert.Nil(t, f.svc.ResolveIdentity(ctx, login.Token), "deleted account resolves to no identity")
}

func TestResolveIdentity_EmployeeTokenHasNoAccount(t *testing.T) {
	f := newAuthFixture(PolicyName)
	seedEmployeeWithPassword(t, f, "legacy@x.com", "pw")
	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "legacy@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Nil(t, f.svc.ResolveIdentity(context.Background(), resp.Token))
}

func TestMe(t *testing.T) {
	f := newAuthFixture(PolicyUsername)

	_, err := f.svc.Me(context.Background())
	assertKind(t, err, apierror.KindUnauthorized)
	assert.Equal(t, "Unauthorized: Please login first", err.Error())

	acct := &model.Account{ID: uuid.New(), Username: "alice", Email: "a@x.com", Role: model.RoleEmployee}
	me, err := f.svc.Me(auth.WithAccount(context.Background(), acct))
	require.NoError(t, err)
	assert.Equal(t, acct.ID.String(), me.ID)
	assert.Equal(t, "a@x.com", me.Email)
}

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "annlee", DeriveUsername("Ann Lee"))
	assert.Equal(t, "annmarielee", DeriveUsername("  Ann\tMarie \n Lee "))
	assert.Equal(t, "", DeriveUsername("   "))
}
