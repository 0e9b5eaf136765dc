// api/router.go
package api

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benmann/supabase/api/handlers"
	"github.com/benmann/supabase/api/middleware"
	"github.com/benmann/supabase/config"
	"github.com/benmann/supabase/internal/flags"
	"github.com/benmann/supabase/internal/gateway"
	"github.com/benmann/supabase/internal/grid"
	"github.com/benmann/supabase/internal/logger"
	"github.com/benmann/supabase/internal/meta"
	"github.com/benmann/supabase/internal/mutation"
	"github.com/benmann/supabase/internal/storage"
	"github.com/benmann/supabase/internal/telemetry"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(localDB *sql.DB, pool *pgxpool.Pool, cfg *config.Config) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	ratelimiter := middleware.NewRateLimiter()
	router.Use(middleware.RateLimitMiddleware(ratelimiter))
	// Runs after Logger/Recovery but wraps all handlers, so every error
	// attached via c.Error lands in one place.
	router.Use(middleware.ErrorHandler())

	log := logger.NewLogger()

	// Wire the grid pipeline: resolver and gateway read the administered
	// database, the coordinator mutates it through the shared cache.
	resolver := meta.NewResolver(pool, log)
	cache := gateway.NewResultCache()
	remote := gateway.New(pool, cache, log)
	adapter := grid.NewAdapter(log)
	coordinator := mutation.NewCoordinator(remote, cache, log)
	collector := telemetry.NewCollector(cfg.TelemetryURL, log)
	registry := flags.NewRegistry(storage.NewFlagStore(localDB), collector, log)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(localDB, cfg)
	entityHandler := handlers.NewEntityHandler(resolver, remote, coordinator, adapter, collector)
	flagHandler := handlers.NewFlagHandler(registry)

	authRequired := middleware.CombinedAuthMiddleware(localDB, cfg)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)

		// Service-key management needs an authenticated caller.
		authRoutes.POST("/key", authRequired, authHandler.CreateKey)
		authRoutes.DELETE("/key", authRequired, authHandler.RevokeKey)
	}

	// --- Protected Routes ---
	apiRoutes := router.Group("/api/v1")
	apiRoutes.Use(authRequired)
	{
		apiRoutes.GET("/schemas/:schema/entities", entityHandler.ListEntities)
		apiRoutes.GET("/schemas/:schema/entities/:entity", entityHandler.GetEntity)
		apiRoutes.GET("/schemas/:schema/entities/:entity/rows", entityHandler.ListRows)
		apiRoutes.PATCH("/schemas/:schema/entities/:entity/rows", entityHandler.UpdateRow)

		apiRoutes.GET("/flags", flagHandler.ListFlags)
		apiRoutes.POST("/flags/:key/toggle", flagHandler.ToggleFlag)
	}

	return router
}
