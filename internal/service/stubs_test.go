package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"staffdesk/internal/dto"
	"staffdesk/internal/model"
	"staffdesk/internal/repository"

	"github.com/google/uuid"
)

// ── In-memory Repository Stubs ───────────────────────────────────────────────

type stubAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*model.Account
	// failWith makes every call fail, to exercise internal error paths.
	failWith error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[uuid.UUID]*model.Account)}
}

func (r *stubAccountRepo) Create(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	for _, x := range r.accounts {
		if x.Username == a.Username || x.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	a.ID = uuid.New()
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *stubAccountRepo) Update(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *stubAccountRepo) find(match func(*model.Account) bool) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, a := range r.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.ID == id })
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Username == username })
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Email == email })
}

func (r *stubAccountRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Username == username || a.Email == email })
}

func (r *stubAccountRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *stubAccountRepo) delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
}

type stubEmployeeRepo struct {
	mu        sync.Mutex
	employees map[uuid.UUID]*model.Employee
	lastQuery dto.EmployeeQuery
}

func newStubEmployeeRepo() *stubEmployeeRepo {
	return &stubEmployeeRepo{employees: make(map[uuid.UUID]*model.Employee)}
}

func (r *stubEmployeeRepo) Create(_ context.Context, e *model.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt, e.UpdatedAt = time.Now(), time.Now()
	cp := *e
	r.employees[e.ID] = &cp
	return nil
}

func (r *stubEmployeeRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.employees[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *stubEmployeeRepo) FindByEmail(_ context.Context, email string) (*model.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.employees {
		if e.Email != nil && *e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubEmployeeRepo) List(_ context.Context, q dto.EmployeeQuery) ([]model.Employee, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQuery = q
	var out []model.Employee
	for _, e := range r.employees {
		if q.Name != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(q.Name)) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	start := min(q.Offset(), len(out))
	end := min(start+q.Limit, len(out))
	return out[start:end], total, nil
}

func (r *stubEmployeeRepo) Update(_ context.Context, id uuid.UUID, ch repository.EmployeeChanges) (*model.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.employees[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ch.Name != nil {
		e.Name = *ch.Name
	}
	if ch.Age != nil {
		e.Age = *ch.Age
	}
	if ch.Class != nil {
		e.Class = *ch.Class
	}
	if ch.Subject != nil {
		e.Subject = *ch.Subject
	}
	if ch.Attendance != nil {
		e.Attendance = *ch.Attendance
	}
	if ch.Email != nil {
		e.Email = ch.Email
	}
	if ch.PasswordHash != nil {
		e.PasswordHash = ch.PasswordHash
	}
	cp := *e
	return &cp, nil
}

func (r *stubEmployeeRepo) Delete(_ context.Context, id uuid.UUID) (*model.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.employees[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.employees, id)
	return e, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	accounts []string
	err      error
}

func (n *recordingNotifier) AccountRegistered(_ context.Context, a *model.Account) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts = append(n.accounts, a.Email)
	return n.err
}
