package http

import (
	"github.com/gin-gonic/gin"

	"stratum/internal/infrastructure/config"
	"stratum/internal/infrastructure/ratelimit"
	"stratum/internal/interfaces/http/handlers"
	"stratum/internal/interfaces/http/middleware"
	"stratum/internal/shared/logger"
)

// RouterDeps carries everything the router wires together.
type RouterDeps struct {
	Config         *config.Config
	Logger         logger.Interface
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    ratelimit.RateLimiter

	AuthHandler      *handlers.AuthHandler
	TenantHandler    *handlers.TenantHandler
	MigrationHandler *handlers.MigrationHandler
	RoutingHandler   *handlers.RoutingHandler
	HealthHandler    *handlers.HealthHandler
}

// SetupRouter builds the gin engine: an unauthenticated health probe, a
// rate-limited data path for route resolution, and an authenticated
// administrative API for the registry and migrations.
func SetupRouter(deps *RouterDeps) *gin.Engine {
	if deps.Config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(deps.Config.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())

	router.GET("/health", deps.HealthHandler.Health)

	api := router.Group("/api/v1")

	// Operator token exchange. Rate limited: the API key is the only
	// credential, so brute-force pressure lands here.
	authRoutes := api.Group("/auth")
	authRoutes.Use(middleware.RateLimit(deps.RateLimiter, deps.Config.RateLimit, deps.Logger))
	{
		authRoutes.POST("/token", deps.AuthHandler.Token)
		authRoutes.POST("/refresh", deps.AuthHandler.Refresh)
	}

	// Data path: tenant identity comes from session claim, header, or
	// subdomain; authentication is optional but strengthens the hint.
	routing := api.Group("/routing")
	routing.Use(deps.AuthMiddleware.OptionalAuth())
	routing.Use(middleware.TenantHint(deps.Config.Routing.TenantHeader, deps.Config.Server.BaseDomain))
	routing.Use(middleware.RateLimit(deps.RateLimiter, deps.Config.RateLimit, deps.Logger))
	{
		routing.GET("/resolve", deps.RoutingHandler.Resolve)
	}

	// Administrative API.
	admin := api.Group("")
	admin.Use(deps.AuthMiddleware.RequireAuth())
	{
		tenants := admin.Group("/tenants")
		{
			tenants.POST("", deps.TenantHandler.Register)
			tenants.GET("", deps.TenantHandler.List)
			tenants.GET("/:id", deps.TenantHandler.Get)
			tenants.PATCH("/:id", deps.TenantHandler.Update)
			tenants.DELETE("/:id", deps.TenantHandler.Decommission)
			tenants.POST("/:id/suspend", deps.TenantHandler.Suspend)
			tenants.POST("/:id/reactivate", deps.TenantHandler.Reactivate)
			tenants.POST("/:id/migrations", deps.TenantHandler.StartMigration)
		}

		migrations := admin.Group("/migrations")
		{
			migrations.GET("", deps.MigrationHandler.List)
			migrations.GET("/:id", deps.MigrationHandler.Get)
		}

		admin.GET("/pools", deps.HealthHandler.PoolStats)
	}

	return router
}
