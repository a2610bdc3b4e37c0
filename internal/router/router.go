package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/signup-activation/internal/config"
	"github.com/iliyamo/signup-activation/internal/handler"
	"github.com/iliyamo/signup-activation/internal/middleware"
	"github.com/iliyamo/signup-activation/internal/model"
	"github.com/iliyamo/signup-activation/internal/service"
	"github.com/iliyamo/signup-activation/internal/utils"
)

// RegisterRoutes registers the health checks. /healthz never touches a
// dependency; /readyz pings the database.
func RegisterRoutes(e *echo.Echo, ready handler.ReadyHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", ready.Ready)
}

// UseCORS allows browser calls from the configured origins.  An empty list
// leaves CORS off.
func UseCORS(e *echo.Echo, origins []string) {
	if len(origins) == 0 {
		return
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
	}))
}

// RegisterSignup mounts the public signup and activation endpoints, each
// behind its own rate limit.  A nil limiter or a disabled config turns
// throttling off.  Other verbs on these paths get 405 from the router.
func RegisterSignup(e *echo.Echo, s *handler.SignupHandler, a *handler.ActivationHandler, l *service.Limiter, rl config.RateLimitConfig) {
	if !rl.Enabled {
		l = nil
	}
	signupLimit := middleware.RateLimit(l, model.EndpointSignup, rl.Signup)
	activationLimit := middleware.RateLimit(l, model.EndpointActivation, rl.Activation)

	e.POST("/signups", s.Create, signupLimit)
	e.GET("/activations", a.Activate, activationLimit)
	e.POST("/activations", a.Activate, activationLimit)
}

// RegisterAdmin mounts the operator endpoints under /admin.  They require a
// JWT with the ADMIN role; with no secret configured they are not mounted.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	if jwtSecret == "" {
		return
	}
	g := e.Group(
		"/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
	g.GET("/signups", h.ListSignups)
	g.POST("/rate-limits/purge", h.PurgeRateLimits)
}
