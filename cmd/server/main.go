// Package main is the entry point for the PlanHive progression server.
//
// The server tracks tasks and planners, awards XP for completed work,
// resolves levels, evaluates achievements and serves leaderboards.
//
// The layout follows Clean Architecture and DDD:
// - Domain: business rules without external dependencies
// - Application: use case orchestration (Commands/Queries/Coordinator)
// - Infrastructure: PostgreSQL, Redis, in-memory event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/planhive/planhive/config"

	// Application layer
	"github.com/planhive/planhive/internal/application/command"
	"github.com/planhive/planhive/internal/application/progression"
	"github.com/planhive/planhive/internal/application/query"

	// Domain layer
	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"

	// Infrastructure layer
	"github.com/planhive/planhive/internal/infrastructure/messaging"
	"github.com/planhive/planhive/internal/infrastructure/persistence/postgres"
	"github.com/planhive/planhive/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/planhive/planhive/internal/interface/http"

	// Packages
	"github.com/planhive/planhive/pkg/logger"
	"github.com/planhive/planhive/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting PlanHive progression server",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE CONNECTION (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")

	pgCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Name,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	}

	dbConn, err := retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Connection, error) {
		conn, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return nil, retry.Retryable(err)
		}
		return conn, nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS AND CATALOG SEED
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed")

	catalog := reward.DefaultCatalog()
	catalogRepo := postgres.NewCatalogRepository(dbConn)
	if err := catalogRepo.Seed(ctx, catalog.Definitions()); err != nil {
		return fmt.Errorf("failed to seed achievement catalog: %w", err)
	}
	log.Info("achievement catalog ready", "definitions", catalog.Len())

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   redis.DefaultConfig().MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}
		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	userRepo := postgres.NewUserRepository(dbConn)
	taskRepo := postgres.NewTaskRepository(dbConn)
	plannerRepo := postgres.NewPlannerRepository(dbConn)
	unlockRepo := postgres.NewUnlockRepository(dbConn)
	boardRepo := postgres.NewLeaderboardRepository(dbConn)
	progressionStore := postgres.NewProgressionStore(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	eventBus := messaging.NewEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	registerEventLogging(eventBus, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER (Coordinator, Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	coordinator := progression.NewCoordinator(progressionStore, catalog, eventBus, nil)

	registerUserCmd := command.NewRegisterUserHandler(userRepo, eventBus)
	createTaskCmd := command.NewCreateTaskHandler(taskRepo, plannerRepo)
	setCompletionCmd := command.NewSetTaskCompletionHandler(taskRepo, coordinator, eventBus)
	createPlannerCmd := command.NewCreatePlannerHandler(plannerRepo, userRepo, coordinator, eventBus)
	unlockCmd := command.NewUnlockAchievementHandler(coordinator)

	var lbCache query.LeaderboardCache
	if redisCache != nil {
		lbCache = redis.NewLeaderboardCache(redisCache)
	}

	achievementsQuery := query.NewGetAchievementsHandler(catalog, unlockRepo)
	leaderboardQuery := query.NewGetLeaderboardHandler(boardRepo, lbCache)
	userStatsQuery := query.NewGetUserStatsHandler(userRepo, taskRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpLogger := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: true,
	})

	healthChecks := map[string]httpserver.HealthChecker{
		"postgres": dbConn.Ping,
	}
	if redisCache != nil {
		healthChecks["redis"] = redisCache.Ping
	}

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.EnableCORS = cfg.HTTP.EnableCORS
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		RegisterUser:      registerUserCmd,
		CreateTask:        createTaskCmd,
		SetTaskCompletion: setCompletionCmd,
		CreatePlanner:     createPlannerCmd,
		UnlockAchievement: unlockCmd,
		GetAchievements:   achievementsQuery,
		GetLeaderboard:    leaderboardQuery,
		GetUserStats:      userStatsQuery,
		TaskRepo:          taskRepo,
		PlannerRepo:       plannerRepo,
		BoardRepo:         boardRepo,
		HealthChecks:      healthChecks,
		Logger:            httpLogger,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 10. START AND GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()
	log.Info("PlanHive progression server is running", "address", server.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			return err
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	// Event bus and database close via defer.
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging for the process.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// registerEventLogging subscribes observers for the progression events that
// operators care about.
func registerEventLogging(bus *messaging.EventBus, log *slog.Logger) {
	_ = bus.Subscribe(shared.EventLevelUp, func(e shared.Event) {
		log.Info("user leveled up", "aggregate_id", e.AggregateID())
	})
	_ = bus.Subscribe(shared.EventAchievementUnlocked, func(e shared.Event) {
		log.Info("achievement unlocked", "aggregate_id", e.AggregateID())
	})
	_ = bus.SubscribeAll(func(e shared.Event) {
		log.Debug("domain event", "event_type", string(e.EventType()), "aggregate_id", e.AggregateID())
	})
}
