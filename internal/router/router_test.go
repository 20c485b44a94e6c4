package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"staffdesk/internal/auth"
	"staffdesk/internal/config"
	"staffdesk/internal/infra"
	"staffdesk/internal/metrics"
	"staffdesk/internal/model"
	"staffdesk/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig(policy string, protect bool) *config.Config {
	return &config.Config{
		Port:                  4000,
		GraphQLPath:           "/graphql",
		StoreDriver:           config.StoreDriverPostgres,
		RegistrationPolicy:    policy,
		ProtectEmployeeWrites: protect,
		JWTSecret:             "router-test-secret",
		JWTExpirationHours:    1,
		LoginRateLimit:        100,
		APIRateLimit:          1000,
		CORSAllowedOrigins:    "*",
	}
}

func newTestStore(t *testing.T) *infra.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.Migrate(db))
	return infra.NewGormStore("sqlite", db)
}

type app struct {
	engine *gin.Engine
	queue  *worker.MemoryQueue
}

func newApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	q := worker.NewMemoryQueue()
	r, err := New(ctx, Deps{
		Config:   cfg,
		Store:    newTestStore(t),
		Notifier: worker.NewDispatcher(q),
		Metrics:  metrics.New(),
		Hasher:   auth.NewBcryptHasher(4),
	})
	require.NoError(t, err)
	return &app{engine: r, queue: q}
}

func (a *app) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (a *app) graphql(t *testing.T, token, query string) map[string]interface{} {
	t.Helper()
	code, out := a.do(t, http.MethodPost, "/graphql", token, map[string]interface{}{"query": query})
	require.Equal(t, http.StatusOK, code)
	return out
}

func TestRoutes_UsernamePolicyEndToEnd(t *testing.T) {
	a := newApp(t, testConfig(config.RegistrationPolicyUsername, false))

	code, body := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "pw1", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, code, body)

	// registration queued a welcome mail
	n, err := a.queue.Len(context.Background(), worker.QueueEmail)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	code, body = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "pw1"})
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)

	code, body = a.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "admin", body["account"].(map[string]interface{})["role"])

	// an invalid token on a public route binds no identity and is not rejected
	code, _ = a.do(t, http.MethodGet, "/employees", "garbage", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRoutes_LegacyAliases(t *testing.T) {
	a := newApp(t, testConfig(config.RegistrationPolicyName, false))

	code, body := a.do(t, http.MethodPost, "/register-employee", "", map[string]interface{}{
		"name": "Ann", "age": 30, "class": "A", "subject": "Math", "attendance": "90%",
	})
	require.Equal(t, http.StatusCreated, code, body)
	id := body["employee"].(map[string]interface{})["id"].(string)

	code, body = a.do(t, http.MethodGet, "/get-employees", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])

	code, _ = a.do(t, http.MethodGet, "/employee/"+id, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(t, http.MethodPut, "/update-employee", "", map[string]interface{}{"id": id, "name": "Anna"})
	assert.Equal(t, http.StatusOK, code)

	code, body = a.do(t, http.MethodDelete, "/delete-employee/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Anna", body["employee"].(map[string]interface{})["name"])
}

func TestRoutes_ProtectedWrites(t *testing.T) {
	a := newApp(t, testConfig(config.RegistrationPolicyUsername, true))
	emp := map[string]interface{}{"name": "Ann", "age": 30, "class": "A", "subject": "Math", "attendance": "y"}

	code, body := a.do(t, http.MethodPost, "/employees", "", emp)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	code, _ = a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "bob", "email": "bob@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, code)
	_, body = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "bob", "password": "pw"})
	employeeToken := body["token"].(string)
	assert.Equal(t, string(model.RoleEmployee), body["account"].(map[string]interface{})["role"])

	code, body = a.do(t, http.MethodPost, "/employees", employeeToken, emp)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", body["code"])

	code, _ = a.do(t, http.MethodGet, "/employees", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRoutes_GraphQLSeesBoundIdentity(t *testing.T) {
	a := newApp(t, testConfig(config.RegistrationPolicyName, false))

	out := a.graphql(t, "", `mutation { register(name: "Root User", email: "root@example.com", password: "pw") { token } }`)
	require.Nil(t, out["errors"])
	token := out["data"].(map[string]interface{})["register"].(map[string]interface{})["token"].(string)

	out = a.graphql(t, token, `{ me { name role } }`)
	require.Nil(t, out["errors"])
	me := out["data"].(map[string]interface{})["me"].(map[string]interface{})
	assert.Equal(t, "Root User", me["name"])

	out = a.graphql(t, "", `{ me { name } }`)
	errs := out["errors"].([]interface{})
	require.Len(t, errs, 1)
	ext := errs[0].(map[string]interface{})["extensions"].(map[string]interface{})
	assert.Equal(t, "UNAUTHORIZED", ext["code"])
}

func TestRoutes_LoginRateLimit(t *testing.T) {
	cfg := testConfig(config.RegistrationPolicyUsername, false)
	cfg.LoginRateLimit = 2
	a := newApp(t, cfg)

	creds := map[string]string{"username": "nobody", "password": "x"}
	for i := 0; i < 2; i++ {
		code, _ := a.do(t, http.MethodPost, "/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, code)
	}
	code, _ := a.do(t, http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestRoutes_MetricsAndHealth(t *testing.T) {
	a := newApp(t, testConfig(config.RegistrationPolicyName, false))

	code, body := a.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, _ = a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `staffdesk_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRoutes_APIDocs(t *testing.T) {
	a := newApp(t, testConfig(config.RegistrationPolicyName, false))

	code, doc := a.do(t, http.MethodGet, OpenAPIPath, "", nil)
	require.Equal(t, http.StatusOK, code)
	paths := doc["paths"].(map[string]interface{})
	for _, p := range []string{"/auth/register", "/auth/login", "/auth/me", "/employees", "/employees/{id}"} {
		assert.Contains(t, paths, p)
	}

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), OpenAPIPath)
}

func TestRoutes_APIDocsDisabledInProduction(t *testing.T) {
	cfg := testConfig(config.RegistrationPolicyName, false)
	cfg.Env = "production"
	a := newApp(t, cfg)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	code, _ := a.do(t, http.MethodGet, OpenAPIPath, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
