package graph

import (
	"context"
	"time"

	"staffdesk/internal/apierror"
	"staffdesk/internal/auth"
	"staffdesk/internal/dto"
	"staffdesk/internal/metrics"
	"staffdesk/internal/service"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog/log"
)

// timeLayout is RFC 3339 with milliseconds.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type Resolver struct {
	auth      service.AuthService
	employees service.EmployeeService
	policy    auth.Policy
	metrics   *metrics.Metrics
}

// gqlError classifies err for the response. The executor copies
// (*apierror.Error).Extensions into the error's extensions.
func gqlError(op auth.Operation, err error) error {
	e := apierror.From(err)
	if e.Kind == apierror.KindInternal {
		log.Error().Err(e.Cause).Str("operation", string(op)).Msg("graphql operation failed")
	}
	return e
}

// ── Queries ──────────────────────────────────────────────────────────────────

type employeeFilterInput struct {
	Name    *string
	Class   *string
	Subject *string
}

type employeesArgs struct {
	Filters   *employeeFilterInput
	Page      *int32
	Limit     *int32
	SortBy    *string
	SortOrder *string
}

func (r *Resolver) Employees(ctx context.Context, args employeesArgs) (*employeeListResolver, error) {
	if err := r.policy.Check(ctx, auth.OpListEmployees); err != nil {
		return nil, gqlError(auth.OpListEmployees, err)
	}
	filter := dto.EmployeeFilter{
		Page:      intPtr(args.Page),
		Limit:     intPtr(args.Limit),
		SortBy:    deref(args.SortBy),
		SortOrder: deref(args.SortOrder),
	}
	if f := args.Filters; f != nil {
		filter.Name, filter.Class, filter.Subject = deref(f.Name), deref(f.Class), deref(f.Subject)
	}
	resp, err := r.employees.List(ctx, filter)
	if err != nil {
		return nil, gqlError(auth.OpListEmployees, err)
	}
	return &employeeListResolver{resp}, nil
}

// Employee resolves to null when no record has the id.
func (r *Resolver) Employee(ctx context.Context, args struct{ ID graphql.ID }) (*employeeResolver, error) {
	if err := r.policy.Check(ctx, auth.OpGetEmployee); err != nil {
		return nil, gqlError(auth.OpGetEmployee, err)
	}
	resp, err := r.employees.Get(ctx, string(args.ID))
	if apierror.IsKind(err, apierror.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, gqlError(auth.OpGetEmployee, err)
	}
	return &employeeResolver{resp.Employee}, nil
}

func (r *Resolver) Me(ctx context.Context) (*accountResolver, error) {
	if err := r.policy.Check(ctx, auth.OpMe); err != nil {
		return nil, gqlError(auth.OpMe, err)
	}
	resp, err := r.auth.Me(ctx)
	if err != nil {
		return nil, gqlError(auth.OpMe, err)
	}
	return &accountResolver{*resp}, nil
}

// ── Mutations ────────────────────────────────────────────────────────────────

type registerArgs struct {
	Name     *string
	Username *string
	Email    string
	Password string
	Role     *string
}

// Register also signs the caller in, so the payload carries a token.
func (r *Resolver) Register(ctx context.Context, args registerArgs) (*authPayloadResolver, error) {
	if err := r.policy.Check(ctx, auth.OpRegister); err != nil {
		return nil, gqlError(auth.OpRegister, err)
	}
	resp, err := r.auth.Register(ctx, dto.RegisterRequest{
		Name:     deref(args.Name),
		Username: deref(args.Username),
		Email:    args.Email,
		Password: args.Password,
		Role:     deref(args.Role),
	})
	r.metrics.AuthEvent("register", apierror.Outcome(err))
	if err != nil {
		return nil, gqlError(auth.OpRegister, err)
	}
	token, err := r.auth.IssueToken(resp.Account.ID, resp.Account.Role)
	if err != nil {
		return nil, gqlError(auth.OpRegister, apierror.Internal(err))
	}
	return &authPayloadResolver{message: resp.Message, token: token, account: resp.Account}, nil
}

type loginArgs struct {
	Email    *string
	Username *string
	Password string
}

func (r *Resolver) Login(ctx context.Context, args loginArgs) (*authPayloadResolver, error) {
	if err := r.policy.Check(ctx, auth.OpLogin); err != nil {
		return nil, gqlError(auth.OpLogin, err)
	}
	resp, err := r.auth.Login(ctx, dto.LoginRequest{
		Email:    deref(args.Email),
		Username: deref(args.Username),
		Password: args.Password,
	})
	r.metrics.AuthEvent("login", apierror.Outcome(err))
	if err != nil {
		return nil, gqlError(auth.OpLogin, err)
	}
	return &authPayloadResolver{message: resp.Message, token: resp.Token, account: resp.Account}, nil
}

type createEmployeeArgs struct {
	Name          string
	Age           float64
	Class         string
	Subject       string
	Attendance    string
	Email         *string
	Password      *string
	CreateAccount *bool
}

func (r *Resolver) CreateEmployee(ctx context.Context, args createEmployeeArgs) (*employeePayloadResolver, error) {
	if err := r.policy.Check(ctx, auth.OpCreateEmployee); err != nil {
		return nil, gqlError(auth.OpCreateEmployee, err)
	}
	att := dto.FlexString(args.Attendance)
	resp, err := r.employees.Create(ctx, dto.CreateEmployeeRequest{
		Name:          args.Name,
		Age:           &args.Age,
		Class:         args.Class,
		Subject:       args.Subject,
		Attendance:    &att,
		Email:         args.Email,
		Password:      args.Password,
		CreateAccount: args.CreateAccount != nil && *args.CreateAccount,
	})
	if err != nil {
		return nil, gqlError(auth.OpCreateEmployee, err)
	}
	return &employeePayloadResolver{resp}, nil
}

type updateEmployeeArgs struct {
	ID         graphql.ID
	Name       *string
	Age        *float64
	Class      *string
	Subject    *string
	Attendance *string
	Email      *string
	Password   *string
}

func (r *Resolver) UpdateEmployee(ctx context.Context, args updateEmployeeArgs) (*employeePayloadResolver, error) {
	if err := r.policy.Check(ctx, auth.OpUpdateEmployee); err != nil {
		return nil, gqlError(auth.OpUpdateEmployee, err)
	}
	req := dto.UpdateEmployeeRequest{
		Name:     args.Name,
		Age:      args.Age,
		Class:    args.Class,
		Subject:  args.Subject,
		Email:    args.Email,
		Password: args.Password,
	}
	if args.Attendance != nil {
		att := dto.FlexString(*args.Attendance)
		req.Attendance = &att
	}
	resp, err := r.employees.Update(ctx, string(args.ID), req)
	if err != nil {
		return nil, gqlError(auth.OpUpdateEmployee, err)
	}
	return &employeePayloadResolver{resp}, nil
}

func (r *Resolver) DeleteEmployee(ctx context.Context, args struct{ ID graphql.ID }) (*employeePayloadResolver, error) {
	if err := r.policy.Check(ctx, auth.OpDeleteEmployee); err != nil {
		return nil, gqlError(auth.OpDeleteEmployee, err)
	}
	resp, err := r.employees.Delete(ctx, string(args.ID))
	if err != nil {
		return nil, gqlError(auth.OpDeleteEmployee, err)
	}
	return &employeePayloadResolver{resp}, nil
}

// ── Object resolvers ─────────────────────────────────────────────────────────

type employeeResolver struct{ e dto.EmployeeResponse }

func (r *employeeResolver) ID() graphql.ID     { return graphql.ID(r.e.ID) }
func (r *employeeResolver) Name() string       { return r.e.Name }
func (r *employeeResolver) Age() float64       { return r.e.Age }
func (r *employeeResolver) Class() string      { return r.e.Class }
func (r *employeeResolver) Subject() string    { return r.e.Subject }
func (r *employeeResolver) Attendance() string { return r.e.Attendance }
func (r *employeeResolver) Email() *string     { return r.e.Email }
func (r *employeeResolver) CreatedAt() string  { return formatTime(r.e.CreatedAt) }
func (r *employeeResolver) UpdatedAt() string  { return formatTime(r.e.UpdatedAt) }

type employeeListResolver struct{ l *dto.EmployeeListResponse }

func (r *employeeListResolver) Message() string { return r.l.Message }
func (r *employeeListResolver) Total() int32    { return int32(r.l.Total) }
func (r *employeeListResolver) Page() int32     { return int32(r.l.Page) }
func (r *employeeListResolver) Limit() int32    { return int32(r.l.Limit) }

func (r *employeeListResolver) Employees() []*employeeResolver {
	out := make([]*employeeResolver, len(r.l.Employees))
	for i, e := range r.l.Employees {
		out[i] = &employeeResolver{e}
	}
	return out
}

type employeePayloadResolver struct{ p *dto.EmployeeResult }

func (r *employeePayloadResolver) Message() string { return r.p.Message }

func (r *employeePayloadResolver) Employee() *employeeResolver {
	return &employeeResolver{r.p.Employee}
}

type accountResolver struct{ a dto.AccountResponse }

func (r *accountResolver) ID() graphql.ID { return graphql.ID(r.a.ID) }
func (r *accountResolver) Role() string   { return string(r.a.Role) }

// Name falls back to the username for accounts registered without one.
func (r *accountResolver) Name() string {
	if r.a.Name != "" {
		return r.a.Name
	}
	return r.a.Username
}

func (r *accountResolver) Username() *string { return optional(r.a.Username) }
func (r *accountResolver) Email() *string    { return optional(r.a.Email) }

type authPayloadResolver struct {
	message string
	token   string
	account dto.AccountResponse
}

func (r *authPayloadResolver) Message() string { return r.message }
func (r *authPayloadResolver) Token() string   { return r.token }

func (r *authPayloadResolver) Account() *accountResolver {
	return &accountResolver{r.account}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }
