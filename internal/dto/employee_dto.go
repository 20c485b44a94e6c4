package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"staffdesk/internal/model"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit within int.
	MaxPage = math.MaxInt / MaxLimit

	SortByCreatedAt = "createdAt"
)

// SortableFields is the allow-list for EmployeeFilter.SortBy.
var SortableFields = map[string]bool{
	"name":          true,
	"age":           true,
	"attendance":    true,
	SortByCreatedAt: true,
}

// FlexString accepts any JSON scalar and keeps its textual form, so that
// attendance may arrive as "present", 1 or true.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case len(b) > 0 && (b[0] == '{' || b[0] == '['):
		return errors.New("attendance must be a scalar")
	default:
		*f = FlexString(b)
	}
	return nil
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateEmployeeRequest struct {
	Name          string      `json:"name"`
	Age           *float64    `json:"age"`
	Class         string      `json:"class"`
	Subject       string      `json:"subject"`
	Attendance    *FlexString `json:"attendance"`
	Email         *string     `json:"email"`
	Password      *string     `json:"password" validate:"omitempty,max=72"`
	CreateAccount bool        `json:"createAccount"`
}

// UpdateEmployeeRequest is a partial update. ID is only read from the body on
// the legacy /update-employee route.
type UpdateEmployeeRequest struct {
	ID         string      `json:"id"`
	Name       *string     `json:"name"`
	Age        *float64    `json:"age"`
	Class      *string     `json:"class"`
	Subject    *string     `json:"subject"`
	Attendance *FlexString `json:"attendance"`
	Email      *string     `json:"email"`
	Password   *string     `json:"password" validate:"omitempty,max=72"`
}

// EmployeeFilter is the raw list request from either transport.
type EmployeeFilter struct {
	Name      string
	Class     string
	Subject   string
	Page      *int
	Limit     *int
	SortBy    string
	SortOrder string
}

// EmployeeQuery is a normalized EmployeeFilter, safe to hand to a repository.
type EmployeeQuery struct {
	Name    string
	Class   string
	Subject string
	Page    int
	Limit   int
	SortBy  string
	Desc    bool
}

func (q EmployeeQuery) Offset() int { return (q.Page - 1) * q.Limit }

// Normalize applies paging defaults and clamps, and restricts sorting to
// SortableFields. A zero limit means "not given".
func (f EmployeeFilter) Normalize() EmployeeQuery {
	q := EmployeeQuery{
		Name:    strings.TrimSpace(f.Name),
		Class:   strings.TrimSpace(f.Class),
		Subject: strings.TrimSpace(f.Subject),
		Page:    DefaultPage,
		Limit:   DefaultLimit,
		SortBy:  SortByCreatedAt,
		Desc:    f.SortOrder != "asc",
	}
	if f.Page != nil && *f.Page > 1 {
		q.Page = min(*f.Page, MaxPage)
	}
	if f.Limit != nil && *f.Limit != 0 {
		q.Limit = min(max(*f.Limit, 1), MaxLimit)
	}
	if SortableFields[f.SortBy] {
		q.SortBy = f.SortBy
	}
	return q
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type EmployeeResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Age        float64   `json:"age"`
	Class      string    `json:"class"`
	Subject    string    `json:"subject"`
	Attendance string    `json:"attendance"`
	Email      *string   `json:"email,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type EmployeeResult struct {
	Message  string           `json:"message"`
	Employee EmployeeResponse `json:"employee"`
}

type EmployeeListResponse struct {
	Message   string             `json:"message"`
	Employees []EmployeeResponse `json:"employees"`
	Total     int64              `json:"total"`
	Page      int                `json:"page"`
	Limit     int                `json:"limit"`
}

func NewEmployeeResponse(e *model.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         e.ID.String(),
		Name:       e.Name,
		Age:        e.Age,
		Class:      e.Class,
		Subject:    e.Subject,
		Attendance: e.Attendance,
		Email:      e.Email,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}
