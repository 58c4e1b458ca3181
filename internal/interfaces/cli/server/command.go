package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	appMigration "stratum/internal/application/migration"
	"stratum/internal/application/routing"
	tenantUsecases "stratum/internal/application/tenant/usecases"
	"stratum/internal/domain/shared/events"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/infrastructure/auth"
	"stratum/internal/infrastructure/cache"
	"stratum/internal/infrastructure/config"
	"stratum/internal/infrastructure/database"
	"stratum/internal/infrastructure/datacopy"
	"stratum/internal/infrastructure/migration"
	"stratum/internal/infrastructure/pool"
	"stratum/internal/infrastructure/ratelimit"
	"stratum/internal/infrastructure/repository"
	"stratum/internal/infrastructure/scheduler"
	httpRouter "stratum/internal/interfaces/http"
	"stratum/internal/interfaces/http/handlers"
	"stratum/internal/interfaces/http/middleware"
	"stratum/internal/shared/biztime"
	"stratum/internal/shared/db"
	"stratum/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the routing and registry server",
		Long:  `Start the Stratum HTTP server: tenant registry, route resolution, and the tier migration coordinator.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run catalog migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = mapEnvToGinMode(env)

	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	biztime.MustInit(cfg.Server.Timezone)

	logger.Info("starting server", "environment", env, "auto_migrate", autoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize catalog database: %w", err)
	}
	defer func() { _ = database.Close() }()

	if err := handleMigrations(); err != nil {
		return fmt.Errorf("catalog migration handling failed: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	dispatcher := events.NewInMemoryEventDispatcher(100)
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}
	defer func() {
		if err := dispatcher.Stop(); err != nil {
			logger.Error("failed to stop event dispatcher", "error", err)
		}
	}()

	log := logger.NewLogger()

	tenantRepo := repository.NewTenantRepository(database.Get(), log)
	jobRepo := repository.NewMigrationJobRepository(database.Get(), log)
	txManager := db.NewTransactionManager(database.Get())

	routeCache := cache.NewTenantRouteCache(redisClient, cfg.Routing.CacheTTL())
	resolver := routing.NewResolver(tenantRepo, routeCache, log)
	subscribePlacementChanges(dispatcher, resolver, log)

	poolManager := pool.NewManager(cfg.Pool, nil, log)
	defer func() {
		if err := poolManager.Shutdown(); err != nil {
			logger.Error("failed to close connection pools", "error", err)
		}
	}()

	planner := tenantUsecases.NewPlacementPlanner(cfg.Placement)

	copier := datacopy.NewTableCopier(poolManager, cfg.Migration.Tables, cfg.Migration.CopyBatchSize, log)
	coordinator := appMigration.NewCoordinator(
		tenantRepo, jobRepo, copier, copier, routeCache, resolver,
		txManager, dispatcher, cfg.Migration, log,
	)
	runner := appMigration.NewRunner(coordinator, jobRepo, cfg.Migration.JobBatchSize, log)
	reclaimer := appMigration.NewReclaimer(jobRepo, tenantRepo, poolManager, cfg.Migration, log)

	schedulerManager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := schedulerManager.RegisterMigrationJobs(runner, cfg.Migration.PollInterval()); err != nil {
		return fmt.Errorf("failed to register coordinator job: %w", err)
	}
	if err := schedulerManager.RegisterReclaimJobs(reclaimer); err != nil {
		return fmt.Errorf("failed to register reclaim job: %w", err)
	}
	schedulerManager.Start()
	defer func() {
		if err := schedulerManager.Stop(); err != nil {
			logger.Error("failed to stop scheduler", "error", err)
		}
	}()

	jwtService := auth.NewJWTService(
		cfg.Auth.JWT.Secret,
		cfg.Auth.JWT.AccessExpMinutes,
		cfg.Auth.JWT.RefreshExpDays,
	)
	apiKeyHasher := auth.NewBcryptKeyHasher(cfg.Auth.APIKey.BcryptCost)

	deps := &httpRouter.RouterDeps{
		Config:         cfg,
		Logger:         log,
		AuthMiddleware: middleware.NewAuthMiddleware(jwtService, apiKeyHasher, cfg.Auth.APIKey.Hash, log),
		RateLimiter:    ratelimit.NewRedisRateLimiter(redisClient),
		AuthHandler:    handlers.NewAuthHandler(jwtService, apiKeyHasher, cfg.Auth.APIKey.Hash, log),
		TenantHandler: handlers.NewTenantHandler(
			tenantUsecases.NewRegisterTenantUseCase(tenantRepo, planner, dispatcher, log),
			tenantUsecases.NewGetTenantUseCase(tenantRepo, log),
			tenantUsecases.NewListTenantsUseCase(tenantRepo, log),
			tenantUsecases.NewUpdateTenantUseCase(tenantRepo, dispatcher, log),
			tenantUsecases.NewSuspendTenantUseCase(tenantRepo, dispatcher, log),
			tenantUsecases.NewReactivateTenantUseCase(tenantRepo, dispatcher, log),
			tenantUsecases.NewDecommissionTenantUseCase(tenantRepo, dispatcher, log),
			tenantUsecases.NewStartMigrationUseCase(tenantRepo, jobRepo, planner, txManager, dispatcher, log),
			log,
		),
		MigrationHandler: handlers.NewMigrationHandler(
			tenantUsecases.NewGetMigrationJobUseCase(jobRepo, log),
			tenantUsecases.NewListMigrationJobsUseCase(jobRepo, log),
			log,
		),
		RoutingHandler: handlers.NewRoutingHandler(resolver, log),
		HealthHandler:  handlers.NewHealthHandler(database.Get(), redisClient, poolManager, log),
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      httpRouter.SetupRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}

// subscribePlacementChanges drops cached routing decisions whenever a
// tenant's placement or routability changes.
func subscribePlacementChanges(dispatcher events.EventDispatcher, resolver *routing.Resolver, log logger.Interface) {
	eventTypes := []string{
		domainTenant.EventTenantUpdated,
		domainTenant.EventTenantSuspended,
		domainTenant.EventTenantReactivated,
		domainTenant.EventTenantDecommissioned,
		domainTenant.EventMigrationStarted,
		domainTenant.EventCutoverCompleted,
		domainTenant.EventMigrationAborted,
	}

	for _, eventType := range eventTypes {
		handler := events.NewSimpleEventHandler(eventType, func(event events.DomainEvent) error {
			slug := ""
			if pc, ok := event.(*domainTenant.PlacementChangedEvent); ok {
				slug = pc.Slug
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			resolver.Invalidate(ctx, event.GetAggregateID(), slug)
			return nil
		})
		if err := dispatcher.Subscribe(eventType, handler); err != nil {
			log.Warnw("failed to subscribe route invalidation handler", "event_type", eventType, "error", err)
		}
	}
}

func handleMigrations() error {
	if autoMigrate {
		logger.Info("running catalog auto-migration")
		strategy := migration.NewGormAutoMigrateStrategy()
		if err := strategy.Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
			return err
		}
		logger.Info("catalog auto-migration completed")
		return nil
	}

	scriptsPath, err := filepath.Abs("./internal/infrastructure/migration/scripts")
	if err != nil {
		logger.Warn("failed to resolve migration scripts path", "error", err)
		return nil
	}

	strategy := migration.NewGooseStrategy(scriptsPath)
	if gooseStrategy, ok := strategy.(*migration.GooseStrategy); ok {
		if err := gooseStrategy.Status(database.Get()); err != nil {
			logger.Warn("failed to check catalog migration status", "error", err)
		}
	}
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
