package router

import (
	"context"
	"time"

	"staffdesk/internal/auth"
	"staffdesk/internal/config"
	"staffdesk/internal/graph"
	"staffdesk/internal/handler"
	"staffdesk/internal/infra"
	"staffdesk/internal/metrics"
	"staffdesk/internal/middleware"
	"staffdesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Deps are the infrastructure pieces built by the composition root.
// Redis, Notifier, Breaker, Metrics and Hasher are optional.
type Deps struct {
	Config   *config.Config
	Store    *infra.Store
	Redis    *redis.Client
	Notifier service.Notifier
	Breaker  *infra.CircuitBreaker
	Metrics  *metrics.Metrics
	Hasher   auth.PasswordHasher
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← Store/Redis.
// ctx bounds background goroutines owned by the engine (limiter purge).
func New(ctx context.Context, d Deps) (*gin.Engine, error) {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	hasher := d.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(auth.BcryptCost)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL())
	policy := auth.DefaultPolicy(cfg.ProtectEmployeeWrites)
	authSvc := service.NewAuthService(d.Store.Accounts, d.Store.Employees, hasher, tokens,
		service.RegistrationPolicy(cfg.RegistrationPolicy), d.Notifier)
	employeeSvc := service.NewEmployeeService(d.Store.Employees, d.Store.Accounts, hasher)

	schema, err := graph.NewSchema(authSvc, employeeSvc, policy, d.Metrics)
	if err != nil {
		return nil, err
	}

	for _, op := range policy.OpenOperations() {
		log.Info().Str("operation", string(op)).Msg("operation open to unauthenticated callers")
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Metrics))
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimit(newLimiter(ctx, d.Redis, "api", cfg.APIRateLimit), "Too many requests"))
	r.Use(middleware.BindIdentity(authSvc))

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc, d.Metrics)
	employeesH := handler.NewEmployeesHandler(employeeSvc)
	loginLimit := middleware.RateLimit(newLimiter(ctx, d.Redis, "login", cfg.LoginRateLimit),
		"Too many login attempts, please try again later")
	allow := func(op auth.Operation) gin.HandlerFunc { return middleware.Authorize(policy, op) }

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/", handler.Root)
	r.GET("/health", handler.Health(d.Store, d.Redis, d.Breaker))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	authG := r.Group("/auth")
	{
		authG.POST("/register", allow(auth.OpRegister), authH.Register)
		authG.POST("/login", loginLimit, allow(auth.OpLogin), authH.Login)
		authG.GET("/me", allow(auth.OpMe), authH.Me)
	}

	emp := r.Group("/employees")
	{
		emp.POST("", allow(auth.OpCreateEmployee), employeesH.Create)
		emp.GET("", allow(auth.OpListEmployees), employeesH.List)
		emp.GET("/:id", allow(auth.OpGetEmployee), employeesH.Get)
		emp.PUT("/:id", allow(auth.OpUpdateEmployee), employeesH.Update)
		emp.DELETE("/:id", allow(auth.OpDeleteEmployee), employeesH.Delete)
	}

	// Legacy paths kept for existing clients.
	r.POST("/register-employee", allow(auth.OpCreateEmployee), employeesH.Create)
	r.GET("/get-employees", allow(auth.OpListEmployees), employeesH.List)
	r.GET("/employee/:id", allow(auth.OpGetEmployee), employeesH.Get)
	r.PUT("/update-employee", allow(auth.OpUpdateEmployee), employeesH.Update)
	r.DELETE("/delete-employee/:id", allow(auth.OpDeleteEmployee), employeesH.Delete)

	// Resolvers check the policy per field.
	r.POST(cfg.GraphQLPath, gin.WrapH(graph.NewHandler(schema)))

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		mountDocs(r)
	}

	return r, nil
}

// newLimiter returns nil, disabling the limit, when perMinute is not positive.
func newLimiter(ctx context.Context, rdb *redis.Client, name string, perMinute int) middleware.Limiter {
	if perMinute <= 0 {
		return nil
	}
	if rdb != nil {
		return middleware.NewRedisLimiter(rdb, name, perMinute, time.Minute)
	}
	l := middleware.NewMemoryLimiter(perMinute, time.Minute)
	go l.RunPurge(ctx, 5*time.Minute)
	return l
}
