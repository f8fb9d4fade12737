package fx

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/sp3dr4/wren/config"
	"github.com/sp3dr4/wren/internal/application"
	"github.com/sp3dr4/wren/internal/domain"
	cacheImpl "github.com/sp3dr4/wren/internal/infrastructure/cache"
	"github.com/sp3dr4/wren/internal/infrastructure/lrucache"
	memoryStore "github.com/sp3dr4/wren/internal/infrastructure/memory"
	postgresStore "github.com/sp3dr4/wren/internal/infrastructure/postgres"
	redisCache "github.com/sp3dr4/wren/internal/infrastructure/redis"
	sqliteStore "github.com/sp3dr4/wren/internal/infrastructure/sqlite"
	"github.com/sp3dr4/wren/internal/pkg/metrics"
)

// ProvideLogger creates and configures the application logger
func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// ProvideLinkStore creates the appropriate link store based on configuration
func ProvideLinkStore(cfg *config.Config, logger *slog.Logger) (domain.LinkStore, error) {
	switch cfg.Database.Type {
	case "memory":
		logger.Info("Using in-memory link store")
		return memoryStore.NewLinkStore(), nil

	case "sqlite":
		dbURL := cfg.GetDatabaseURL()
		logger.Info("Using SQLite link store", "path", dbURL)

		// Create data directory if it doesn't exist
		if err := os.MkdirAll("./data", 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		db, err := sqlx.Connect("sqlite3", dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}

		if err := runMigrations(db, "sqlite3", "sqlite"); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		return sqliteStore.NewLinkStore(db), nil

	case "postgres":
		dbURL := cfg.GetDatabaseURL()
		logger.Info("Using PostgreSQL link store", "url", dbURL)

		db, err := sqlx.Connect("postgres", dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}

		if err := runMigrations(db, "postgres", "postgres"); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		return postgresStore.NewLinkStore(db), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// ProvideRedisClient creates a Redis client when the redis cache backend is
// configured, nil otherwise
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Cache.Backend != "redis" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
}

// ProvideRedirectCache creates the redirect cache based on configuration
func ProvideRedirectCache(cfg *config.Config, client *redis.Client, logger *slog.Logger) (domain.RedirectCache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		logger.Info("Using in-process redirect cache",
			"capacity", cfg.Cache.Capacity,
			"positive_ttl", cfg.Cache.PositiveTTL,
			"negative_ttl", cfg.Cache.NegativeTTL,
		)
		return lrucache.New(cfg.Cache.Capacity, cfg.Cache.PositiveTTL, cfg.Cache.NegativeTTL), nil

	case "redis":
		logger.Info("Using Redis redirect cache",
			"addr", cfg.Cache.Redis.Addr,
			"positive_ttl", cfg.Cache.PositiveTTL,
			"negative_ttl", cfg.Cache.NegativeTTL,
		)
		return redisCache.NewRedirectCache(client, logger, cfg.Cache.PositiveTTL, cfg.Cache.NegativeTTL), nil

	case "none":
		logger.Info("Redirect caching disabled")
		return cacheImpl.NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}

// ProvideMetricsRegistry creates the metrics registry based on configuration
func ProvideMetricsRegistry(cfg *config.Config) (metrics.Registry, error) {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpRegistry(), nil
	}
	return metrics.NewPrometheusRegistry(cfg.Metrics)
}

// ProvideAllocator creates the short ID allocator
func ProvideAllocator(cfg *config.Config, store domain.LinkStore) *application.Allocator {
	return application.NewAllocator(store, cfg.App.ShortIDLength, cfg.App.MaxAllocAttempts)
}

// ProvideResolver creates the redirect resolver, wiring cache outcome counts
// into the metrics registry
func ProvideResolver(store domain.LinkStore, cache domain.RedirectCache, registry metrics.Registry) *application.Resolver {
	return application.NewResolver(store, cache, registry)
}

// ProvideLinkService creates the application facade
func ProvideLinkService(cfg *config.Config, allocator *application.Allocator, resolver *application.Resolver) *application.LinkService {
	return application.NewLinkService(allocator, resolver, cfg.App.BaseURL, cfg.App.MaxDocumentBytes)
}

// runMigrations runs database migrations
func runMigrations(db interface{}, driverName, migrationDir string) error {
	var driver database.Driver
	var err error

	sqlDB, ok := db.(*sqlx.DB)
	if ok {
		db = sqlDB.DB
	}

	rawDB, ok := db.(*sql.DB)
	if !ok {
		return fmt.Errorf("expected *sql.DB, got %T", db)
	}

	switch driverName {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(rawDB, &sqlite3.Config{})
	case "postgres":
		driver, err = postgres.WithInstance(rawDB, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported driver: %s", driverName)
	}

	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := fmt.Sprintf("file://migrations/%s", migrationDir)
	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		driverName,
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Migrations completed successfully")
	return nil
}

// StoreParams holds the parameters needed for store lifecycle management
type StoreParams struct {
	fx.In

	Store  domain.LinkStore
	Logger *slog.Logger
}

// RegisterStoreHooks registers link store lifecycle hooks with FX
func RegisterStoreHooks(lc fx.Lifecycle, params StoreParams) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := params.Store.Close(); err != nil {
				params.Logger.Error("Failed to close link store resources", "error", err)
				return err
			}
			params.Logger.Info("Link store resources closed successfully")
			return nil
		},
	})
}

// CacheParams holds the parameters needed for cache lifecycle management
type CacheParams struct {
	fx.In

	Cache  domain.RedirectCache
	Client *redis.Client
	Logger *slog.Logger
}

// RegisterCacheHooks registers redirect cache lifecycle hooks with FX
func RegisterCacheHooks(lc fx.Lifecycle, params CacheParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Cache.Ping(ctx); err != nil {
				// The resolver degrades to store lookups on cache failure
				params.Logger.Warn("Redirect cache is unreachable", "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if params.Client == nil {
				return nil
			}
			if err := params.Client.Close(); err != nil {
				params.Logger.Error("Failed to close Redis client", "error", err)
				return err
			}
			params.Logger.Info("Redis client closed successfully")
			return nil
		},
	})
}
