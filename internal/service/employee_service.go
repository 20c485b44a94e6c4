package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"staffdesk/internal/apierror"
	"staffdesk/internal/auth"
	"staffdesk/internal/dto"
	"staffdesk/internal/model"
	"staffdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type EmployeeService interface {
	Create(ctx context.Context, req dto.CreateEmployeeRequest) (*dto.EmployeeResult, error)
	List(ctx context.Context, filter dto.EmployeeFilter) (*dto.EmployeeListResponse, error)
	Get(ctx context.Context, id string) (*dto.EmployeeResult, error)
	Update(ctx context.Context, id string, req dto.UpdateEmployeeRequest) (*dto.EmployeeResult, error)
	Delete(ctx context.Context, id string) (*dto.EmployeeResult, error)
}

type employeeService struct {
	repo     repository.EmployeeRepository
	accounts repository.AccountRepository
	hasher   auth.PasswordHasher
}

func NewEmployeeService(repo repository.EmployeeRepository, accounts repository.AccountRepository, hasher auth.PasswordHasher) EmployeeService {
	return &employeeService{repo: repo, accounts: accounts, hasher: hasher}
}

func (s *employeeService) Create(ctx context.Context, req dto.CreateEmployeeRequest) (*dto.EmployeeResult, error) {
	name := strings.TrimSpace(req.Name)
	class := strings.TrimSpace(req.Class)
	subject := strings.TrimSpace(req.Subject)
	var attendance string
	if req.Attendance != nil {
		attendance = strings.TrimSpace(string(*req.Attendance))
	}

	switch {
	case name == "":
		return nil, apierror.Validation("Invalid or missing name")
	case req.Age == nil || !finite(*req.Age):
		return nil, apierror.Validation("Invalid or missing age")
	case class == "":
		return nil, apierror.Validation("Invalid or missing class")
	case subject == "":
		return nil, apierror.Validation("Invalid or missing subject")
	case attendance == "":
		return nil, apierror.Validation("Invalid or missing attendance")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	emp := &model.Employee{
		Name:       name,
		Age:        *req.Age,
		Class:      class,
		Subject:    subject,
		Attendance: attendance,
	}
	if req.Email != nil {
		if email := normalizeEmail(*req.Email); email != "" {
			if err := checkEmail(email); err != nil {
				return nil, err
			}
			emp.Email = &email
		}
	}
	var password string
	if req.Password != nil && *req.Password != "" {
		password = *req.Password
		hash, err := hashPassword(s.hasher, password)
		if err != nil {
			return nil, err
		}
		emp.PasswordHash = &hash
	}

	if req.CreateAccount {
		if emp.Email == nil || emp.PasswordHash == nil {
			return nil, apierror.Validation("createAccount requires email and password")
		}
		if err := s.createParallelAccount(ctx, emp); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, emp); err != nil {
		if req.CreateAccount {
			log.Warn().Err(err).Str("email", *emp.Email).Msg("account created but employee record failed")
		}
		return nil, apierror.Internal(err)
	}
	return &dto.EmployeeResult{Message: "Employee created successfully", Employee: dto.NewEmployeeResponse(emp)}, nil
}

// createParallelAccount creates an employee-role Account sharing the
// record's email and password hash. The two records stay independent.
func (s *employeeService) createParallelAccount(ctx context.Context, emp *model.Employee) error {
	username, err := freeUsername(ctx, s.accounts, DeriveUsername(emp.Name))
	if err != nil {
		return apierror.Internal(err)
	}
	if _, err := s.accounts.FindByUsernameOrEmail(ctx, username, *emp.Email); err == nil {
		return apierror.DuplicateIdentity("Username or email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return apierror.Internal(err)
	}

	acct := &model.Account{
		Name:         emp.Name,
		Username:     username,
		Email:        *emp.Email,
		PasswordHash: *emp.PasswordHash,
		Role:         model.RoleEmployee,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apierror.DuplicateIdentity("Username or email already exists")
		}
		return apierror.Internal(err)
	}
	return nil
}

func (s *employeeService) List(ctx context.Context, filter dto.EmployeeFilter) (*dto.EmployeeListResponse, error) {
	q := filter.Normalize()
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	employees := make([]dto.EmployeeResponse, len(items))
	for i := range items {
		employees[i] = dto.NewEmployeeResponse(&items[i])
	}
	return &dto.EmployeeListResponse{
		Message:   "Employees fetched successfully",
		Employees: employees,
		Total:     total,
		Page:      q.Page,
		Limit:     q.Limit,
	}, nil
}

func (s *employeeService) Get(ctx context.Context, id string) (*dto.EmployeeResult, error) {
	uid, err := parseEmployeeID(id)
	if err != nil {
		return nil, err
	}
	emp, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, employeeErr(err)
	}
	return &dto.EmployeeResult{Message: "Employee fetched successfully", Employee: dto.NewEmployeeResponse(emp)}, nil
}

func (s *employeeService) Update(ctx context.Context, id string, req dto.UpdateEmployeeRequest) (*dto.EmployeeResult, error) {
	uid, err := parseEmployeeID(id)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var ch repository.EmployeeChanges
	ch.Name = nonEmpty(req.Name)
	ch.Class = nonEmpty(req.Class)
	ch.Subject = nonEmpty(req.Subject)
	if req.Age != nil && finite(*req.Age) {
		ch.Age = req.Age
	}
	if req.Attendance != nil {
		att := string(*req.Attendance)
		ch.Attendance = nonEmpty(&att)
	}
	if req.Email != nil {
		if email := normalizeEmail(*req.Email); email != "" {
			if err := checkEmail(email); err != nil {
				return nil, err
			}
			ch.Email = &email
		}
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := hashPassword(s.hasher, *req.Password)
		if err != nil {
			return nil, err
		}
		ch.PasswordHash = &hash
	}
	if ch.Empty() {
		return nil, apierror.Validation("No valid fields provided to update")
	}

	emp, err := s.repo.Update(ctx, uid, ch)
	if err != nil {
		return nil, employeeErr(err)
	}
	return &dto.EmployeeResult{Message: "Employee updated successfully", Employee: dto.NewEmployeeResponse(emp)}, nil
}

func (s *employeeService) Delete(ctx context.Context, id string) (*dto.EmployeeResult, error) {
	uid, err := parseEmployeeID(id)
	if err != nil {
		return nil, err
	}
	emp, err := s.repo.Delete(ctx, uid)
	if err != nil {
		return nil, employeeErr(err)
	}
	return &dto.EmployeeResult{Message: "Employee deleted successfully", Employee: dto.NewEmployeeResponse(emp)}, nil
}

func parseEmployeeID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, apierror.Validation("Invalid employee id")
	}
	return uid, nil
}

func employeeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apierror.NotFound("Employee not found")
	}
	return apierror.Internal(err)
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
