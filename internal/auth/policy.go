package auth

import (
	"context"
	"sort"

	"staffdesk/internal/apierror"
	"staffdesk/internal/model"
)

// Operation names an entry point exposed by both transports.
type Operation string

const (
	OpRegister       Operation = "register"
	OpLogin          Operation = "login"
	OpMe             Operation = "me"
	OpCreateEmployee Operation = "createEmployee"
	OpListEmployees  Operation = "listEmployees"
	OpGetEmployee    Operation = "getEmployee"
	OpUpdateEmployee Operation = "updateEmployee"
	OpDeleteEmployee Operation = "deleteEmployee"
)

// Requirement is what an operation demands from the bound identity.
type Requirement int

const (
	RequireNone Requirement = iota
	RequireAuthenticated
	RequireAdmin
)

func (r Requirement) String() string {
	switch r {
	case RequireAuthenticated:
		return "authenticated"
	case RequireAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Policy maps each operation to its requirement. Unlisted operations are open.
type Policy map[Operation]Requirement

// DefaultPolicy leaves everything but "me" open. protectWrites makes employee
// create/update/delete admin-only.
func DefaultPolicy(protectWrites bool) Policy {
	p := Policy{
		OpRegister:       RequireNone,
		OpLogin:          RequireNone,
		OpMe:             RequireAuthenticated,
		OpCreateEmployee: RequireNone,
		OpListEmployees:  RequireNone,
		OpGetEmployee:    RequireNone,
		OpUpdateEmployee: RequireNone,
		OpDeleteEmployee: RequireNone,
	}
	if protectWrites {
		p[OpCreateEmployee] = RequireAdmin
		p[OpUpdateEmployee] = RequireAdmin
		p[OpDeleteEmployee] = RequireAdmin
	}
	return p
}

// Check evaluates op against the identity bound to ctx.
func (p Policy) Check(ctx context.Context, op Operation) error {
	req := p[op]
	if req == RequireNone {
		return nil
	}
	acct := AccountFrom(ctx)
	if acct == nil {
		return apierror.Unauthorized("Unauthorized: Please login first")
	}
	if req == RequireAdmin && acct.Role != model.RoleAdmin {
		return apierror.Forbidden("Insufficient permissions")
	}
	return nil
}

// OpenOperations lists operations that require no identity, sorted.
func (p Policy) OpenOperations() []Operation {
	var out []Operation
	for op, req := range p {
		if req == RequireNone {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
