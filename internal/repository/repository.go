package repository

import (
	"context"
	"errors"

	"staffdesk/internal/dto"
	"staffdesk/internal/model"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique index rejects a write. Callers
	// match it with errors.Is; the driver error stays wrapped for logging.
	ErrDuplicate = errors.New("duplicate key")
)

// AccountRepository defines the data access contract for accounts.
// Services depend on this interface, not on a concrete store.
type AccountRepository interface {
	Create(ctx context.Context, a *model.Account) error
	Update(ctx context.Context, a *model.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// EmployeeRepository defines the data access contract for employee records.
type EmployeeRepository interface {
	Create(ctx context.Context, e *model.Employee) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Employee, error)
	FindByEmail(ctx context.Context, email string) (*model.Employee, error)
	List(ctx context.Context, q dto.EmployeeQuery) ([]model.Employee, int64, error)
	Update(ctx context.Context, id uuid.UUID, ch EmployeeChanges) (*model.Employee, error)
	Delete(ctx context.Context, id uuid.UUID) (*model.Employee, error)
}

// EmployeeChanges is a partial update; nil fields are left untouched.
type EmployeeChanges struct {
	Name         *string
	Age          *float64
	Class        *string
	Subject      *string
	Attendance   *string
	Email        *string
	PasswordHash *string
}

func (c EmployeeChanges) Empty() bool {
	return c.Name == nil && c.Age == nil && c.Class == nil && c.Subject == nil &&
		c.Attendance == nil && c.Email == nil && c.PasswordHash == nil
}

// fields returns the changed fields keyed by name as mapped through col.
func (c EmployeeChanges) fields(col func(string) string) map[string]interface{} {
	m := make(map[string]interface{})
	set := func(name string, v interface{}) { m[col(name)] = v }
	if c.Name != nil {
		set("name", *c.Name)
	}
	if c.Age != nil {
		set("age", *c.Age)
	}
	if c.Class != nil {
		set("class", *c.Class)
	}
	if c.Subject != nil {
		set("subject", *c.Subject)
	}
	if c.Attendance != nil {
		set("attendance", *c.Attendance)
	}
	if c.Email != nil {
		set("email", *c.Email)
	}
	if c.PasswordHash != nil {
		set("passwordHash", *c.PasswordHash)
	}
	return m
}
