package httpserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/mentor_portal/internal/gate"
	"github.com/Skotchmaster/mentor_portal/internal/httpserver/middleware"
	"github.com/Skotchmaster/mentor_portal/internal/metrics"
	"github.com/Skotchmaster/mentor_portal/pkg/logging"
	loggingmw "github.com/Skotchmaster/mentor_portal/pkg/middleware/logging"
	"github.com/Skotchmaster/mentor_portal/pkg/rbac"
)

type Deps struct {
	Auth           *AuthHTTP
	Users          *UsersHTTP
	Gate           *gate.Gate
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	AuthLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	TrustedProxies []*net.IPNet
	// Ready reports whether dependencies needed to serve traffic are up.
	Ready func(ctx context.Context) error
}

// New builds the echo instance with the full middleware chain and routes.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.IPExtractor = middleware.ClientIP(d.TrustedProxies)

	e.Use(ecM.Recover())
	e.Use(d.Metrics.Instrument())
	e.Use(middleware.Common(d.AllowedOrigins)...)
	e.Use(loggingmw.RequestLogger(d.Logger))
	e.Use(d.Gate.Middleware())

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			logging.FromContext(ctx).Error("readiness_failed", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	var limit []echo.MiddlewareFunc
	if d.AuthLimiter != nil {
		limit = append(limit, d.AuthLimiter.Middleware())
	}

	auth := e.Group("/auth")
	auth.POST("/login", d.Auth.Login, limit...)
	auth.POST("/register", d.Auth.Register, limit...)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.LogOut)
	auth.GET("/me", d.Auth.Me)

	api := e.Group("/api")
	api.GET("/navigation", d.Users.Navigation)
	api.POST("/users", d.Users.Create, gate.RequireCapability(rbac.CapCreateUser))
	api.GET("/users/:id", d.Users.Get, gate.RequireCapability(rbac.CapViewUsers))
	api.PATCH("/users/:id/role", d.Users.ChangeRole, gate.RequireCapability(rbac.CapChangeRoles))
	api.PATCH("/users/:id/status", d.Users.SetStatus, gate.RequireCapability(rbac.CapDeactivateUser))
}
