package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/interfaces/http/handler"
	"github.com/ledgerdesk/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler the ledger API mounts
type Handlers struct {
	Auth      *handler.AuthHandler
	Client    *handler.ClientHandler
	Order     *handler.OrderHandler
	Invoice   *handler.InvoiceHandler
	Dashboard *handler.DashboardHandler
	Audit     *handler.AuditHandler
	System    *handler.SystemHandler
	Health    *handler.HealthHandler
}

// Options configures the middleware chain around the ledger routes
type Options struct {
	Logger *zap.Logger
	HTTP   config.HTTPConfig

	// Tokens validates bearer tokens on every /api/v1 route except login
	Tokens middleware.TokenValidator
	// Denials receives an audit entry for each request refused by RBAC
	Denials middleware.DenialRecorder
	// Idempotency guards invoice generation; a nil Store disables it
	Idempotency middleware.IdempotencyConfig

	ServiceName    string
	TracingEnabled bool
	// Meter records HTTP metrics; nil turns them off
	Meter metric.Meter
	// ProfilingLabels tags profile samples with the matched route
	ProfilingLabels bool
}

// NewEngine builds the gin engine with the middleware stack and every
// ledger route registered. Order matters: the request ID comes first so
// every later layer can log it, and authentication runs before the per-route
// permission checks.
func NewEngine(h Handlers, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log, "/health"))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig(opts.HTTP)))
	if opts.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	}
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: opts.ServiceName,
		Enabled:     opts.TracingEnabled,
	})...)
	if opts.Meter != nil {
		engine.Use(middleware.HTTPMetrics(opts.Meter, log))
	}
	if opts.ProfilingLabels {
		engine.Use(middleware.Profiling())
	}
	if opts.HTTP.RateLimitRequests > 0 {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(opts.HTTP.RateLimitRequests, opts.HTTP.RateLimitWindow)))
		log.Info("Rate limiting enabled",
			zap.Int("requests", opts.HTTP.RateLimitRequests),
			zap.Duration("window", opts.HTTP.RateLimitWindow),
		)
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Check)
	}

	ledgerRoutes(h, opts, log).mount(engine, middleware.Authenticate(middleware.AuthConfig{
		Tokens: opts.Tokens,
		Public: []string{apiBase + "/auth/login"},
		Logger: log,
	}))

	return engine
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}

// ledgerRoutes declares every API route together with the action it needs
func ledgerRoutes(h Handlers, opts Options, log *zap.Logger) *routeTable {
	perm := middleware.PermissionConfig{Recorder: opts.Denials, Logger: log}
	can := func(action identity.Action, entityType string) gin.HandlerFunc {
		return middleware.RequireAction(action, entityType, perm)
	}
	read := func(entityType string) gin.HandlerFunc {
		return can(identity.ActionRead, entityType)
	}

	table := newRouteTable(apiBase)

	authRoutes := table.group("/auth")
	loginHandlers := []gin.HandlerFunc{h.Auth.Login}
	if opts.HTTP.AuthRateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(opts.HTTP.AuthRateLimitRequests, opts.HTTP.RateLimitWindow)
		loginHandlers = append([]gin.HandlerFunc{middleware.AuthRateLimit(limiter)}, loginHandlers...)
	}
	authRoutes.post("/login", loginHandlers...)
	authRoutes.get("/me", h.Auth.Me)

	clientRoutes := table.group("/clients")
	clientRoutes.get("", read(audit.EntityClient), h.Client.List)
	clientRoutes.post("", can(identity.ActionCreateClient, audit.EntityClient), h.Client.Create)

	invoiceGuard := []gin.HandlerFunc{can(identity.ActionCreateInvoice, audit.EntityOrder)}
	if opts.Idempotency.Store != nil {
		invoiceGuard = append(invoiceGuard, middleware.Idempotency(opts.Idempotency))
	}

	orderRoutes := table.group("/orders")
	orderRoutes.get("", read(audit.EntityOrder), h.Order.List)
	orderRoutes.post("", can(identity.ActionCreateOrder, audit.EntityOrder), h.Order.Create)
	orderRoutes.post("/:id/invoice", append(invoiceGuard, h.Invoice.CreateFromOrder)...)

	invoiceRoutes := table.group("/invoices")
	invoiceRoutes.get("", read(audit.EntityInvoice), h.Invoice.List)
	invoiceRoutes.get("/:id", read(audit.EntityInvoice), h.Invoice.Get)
	invoiceRoutes.put("/:id", can(identity.ActionEditInvoice, audit.EntityInvoice), h.Invoice.Update)
	invoiceRoutes.delete("/:id", can(identity.ActionDeleteInvoice, audit.EntityInvoice), h.Invoice.Delete)

	reportRoutes := table.group("/dashboard")
	reportRoutes.get("", read(audit.EntitySystem), h.Dashboard.Get)

	auditRoutes := table.group("/audit")
	auditRoutes.get("", read(audit.EntitySystem), h.Audit.List)
	auditRoutes.post("", read(audit.EntitySystem), h.Audit.Append)

	systemRoutes := table.group("/system")
	systemRoutes.get("/time", read(audit.EntitySystem), h.System.GetTime)
	systemRoutes.post("/time/shift", can(identity.ActionShiftTime, audit.EntitySystem), h.System.ShiftTime)
	systemRoutes.post("/time/restore", can(identity.ActionShiftTime, audit.EntitySystem), h.System.RestoreTime)
	systemRoutes.post("/wipe", can(identity.ActionWipe, audit.EntitySystem), h.System.Wipe)
	systemRoutes.post("/test-data", can(identity.ActionGenerateData, audit.EntitySystem), h.System.GenerateTestData)

	return table
}
