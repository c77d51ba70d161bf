package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tv-spot-scheduler/internal/config"
	"github.com/iliyamo/tv-spot-scheduler/internal/handler"
	"github.com/iliyamo/tv-spot-scheduler/internal/middleware"
	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes.  Unauthenticated
// operations live under /v1/auth; everything else requires a token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
}

// RegisterAPI registers the deal management and spot scheduling routes
// under /v1.  All of them require a valid access token with the ADMIN
// or OPERATOR role.  The Redis token bucket throttles the write paths
// that take the deal lock; the response cache shields the read-only
// reporting endpoints.
func RegisterAPI(e *echo.Echo, d *handler.DealHandler, s *handler.SpotHandler, cfg config.Config, rdb *redis.Client) {
	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))
	api.Use(middleware.RequireRole(model.RoleAdmin, model.RoleOperator))

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Deal management
	api.POST("/deals", d.CreateDeal)
	api.GET("/deals", d.ListDeals)
	api.GET("/deals/:id", d.GetDeal)
	api.DELETE("/deals/:id", d.DeleteDeal)
	api.POST("/deals/:id/events", d.CreateSpecialEvent)
	api.POST("/deals/:id/packages", d.CreateExtraPackage)
	api.POST("/deals/:id/payments", d.RecordPayment)

	// Reporting (read-only, cacheable)
	api.GET("/deals/:id/capacity", d.GetCapacity, cache)
	api.GET("/deals/:id/payments", d.ListPayments, cache)
	api.GET("/deals/:id/spots", s.ListSpots, cache)

	// Scheduling (rate limited: each call contends on the deal lock)
	api.POST("/deals/:id/spots", s.AdmitSpot, limit)
	api.POST("/spots/:id/confirm", s.ConfirmSpot, limit)
	api.POST("/spots/:id/fail", s.FailSpot, limit)
	api.POST("/spots/:id/reschedule", s.RescheduleSpot, limit)
}
