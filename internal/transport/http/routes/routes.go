package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/infra/config"
	"github.com/arklim/menu-accounts/internal/infra/telemetry"
	"github.com/arklim/menu-accounts/internal/transport/http/handlers"
	"github.com/arklim/menu-accounts/internal/transport/http/middleware"
	"github.com/arklim/menu-accounts/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth     handlers.Authenticator
	Signup   handlers.SignupFlow
	Tenants  handlers.MenuLinks
	Admin    handlers.Provisioner
	Sessions middleware.SessionParser
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *usecase.RateLimiter
	Policies    usecase.RateLimitPolicies
	Services    ServiceSet
	HTTPMetrics *middleware.HTTPMetrics
	Tracer      trace.Tracer
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(middleware.RequestContext())
	r.Use(middleware.Tracing(tracer, otel.GetTextMapPropagator()))
	r.Use(middleware.Logger(logger))
	r.Use(deps.HTTPMetrics.Handler())

	r.NoMethod(func(c *gin.Context) {
		if c.Writer.Header().Get("Allow") == "" {
			c.Header("Allow", strings.Join(allowedMethods(r.Routes(), c.Request.URL.Path), ", "))
		}
		c.JSON(http.StatusMethodNotAllowed, handlers.NewErrorResponse(c, string(domain.CodeMethodNotAllowed)))
	})

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	// Rate limiting fails open, so a Redis outage degrades but never blocks traffic.
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithOptionalCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cookie := handlers.CookieSettings{
		Name:   deps.Config.Session.CookieName,
		Secure: deps.Config.App.IsProduction(),
		MaxAge: deps.Config.Session.TTL,
	}

	if deps.Services.Auth != nil {
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, cookie)
		authHandler.RegisterRoutes(r.Group("/auth"))
	}

	if deps.Services.Signup != nil {
		signupGroup := r.Group("/signup")
		if deps.RateLimiter != nil {
			signupGroup.Use(middleware.IPRateLimit(deps.RateLimiter, deps.Policies.SignupIP))
		}
		handlers.NewSignupHandler(deps.Services.Signup).RegisterRoutes(signupGroup)

		handlers.NewCheckoutHandler(deps.Services.Signup).RegisterRoutes(r.Group("/checkout"))
	}

	if deps.Services.Tenants != nil && deps.Services.Sessions != nil {
		tenantGroup := r.Group("/tenants/:" + handlers.TenantParam)
		tenantGroup.Use(
			middleware.RequireSession(deps.Services.Sessions, cookie.CookieName()),
			middleware.RequireActive(),
			middleware.RequireTenant(handlers.TenantParam),
		)
		tenantGroup.GET("/public-token", handlers.NewTenantHandler(deps.Services.Tenants).PublicToken)
	}

	if deps.Services.Admin != nil && deps.Services.Sessions != nil {
		adminGroup := r.Group("/admin")
		adminGroup.Use(
			middleware.RequireSession(deps.Services.Sessions, cookie.CookieName()),
			middleware.RequireActive(),
			middleware.RequireRole(domain.RoleAdmin),
		)
		handlers.NewAdminHandler(deps.Services.Admin).RegisterRoutes(adminGroup)
	}

	return r
}

func allowedMethods(routes gin.RoutesInfo, path string) []string {
	methods := make([]string, 0, 2)
	for _, route := range routes {
		if matchPattern(route.Path, path) {
			methods = append(methods, route.Method)
		}
	}
	return methods
}

func matchPattern(pattern, path string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, segment := range want {
		if strings.HasPrefix(segment, ":") {
			continue
		}
		if segment != got[i] {
			return false
		}
	}
	return true
}
