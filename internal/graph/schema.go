// Package graph exposes the employee and account operations over GraphQL.
// Resolvers call the same services and policy table as the REST handlers.
package graph

import (
	"context"
	_ "embed"
	"net/http"

	"staffdesk/internal/auth"
	"staffdesk/internal/metrics"
	"staffdesk/internal/service"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/rs/zerolog/log"
)

//go:embed schema.graphql
var schemaSDL string

// maxDepth bounds query nesting. Introspection needs the headroom.
const maxDepth = 15

// NewSchema parses the schema and binds it to a resolver over the services.
func NewSchema(authSvc service.AuthService, employees service.EmployeeService, policy auth.Policy, m *metrics.Metrics) (*graphql.Schema, error) {
	r := &Resolver{auth: authSvc, employees: employees, policy: policy, metrics: m}
	return graphql.ParseSchema(schemaSDL, r,
		graphql.MaxDepth(maxDepth),
		graphql.Logger(panicLogger{}),
	)
}

// NewHandler serves POST {query, operationName, variables} requests. The
// identity bound by the REST middleware travels in the request context.
func NewHandler(schema *graphql.Schema) http.Handler {
	return &relay.Handler{Schema: schema}
}

type panicLogger struct{}

func (panicLogger) LogPanic(_ context.Context, value interface{}) {
	log.Error().Interface("panic", value).Msg("graphql resolver panic")
}
