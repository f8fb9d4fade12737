package fx

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/sp3dr4/wren/config"
	"github.com/sp3dr4/wren/internal/application"
	"github.com/sp3dr4/wren/internal/domain"
	httpFX "github.com/sp3dr4/wren/internal/fx/http"
	"github.com/sp3dr4/wren/internal/infrastructure/memory"
	"github.com/sp3dr4/wren/internal/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:         "8080",
			ReadTimeout:  "15s",
			WriteTimeout: "15s",
			IdleTimeout:  "60s",
		},
		Database: config.DatabaseConfig{
			Type: "memory",
		},
		Cache: config.CacheConfig{
			Backend:     "none",
			Capacity:    1000,
			PositiveTTL: 5 * time.Minute,
			NegativeTTL: 30 * time.Second,
		},
		App: config.AppConfig{
			BaseURL:          "http://localhost:8080",
			ShortIDLength:    8,
			MaxAllocAttempts: 6,
			MaxDocumentBytes: 1 << 20,
		},
		Metrics: config.MetricsConfig{
			Enabled: false,
		},
		Logging: config.LoggingConfig{Level: "info"},
	}
}

func TestFXIntegration(t *testing.T) {
	// Test that all dependencies can be wired correctly
	app := fxtest.New(t,
		fx.Provide(func() (*config.Config, error) {
			return testConfig(), nil
		}),

		// Use the same providers as the main app
		InfrastructureModule,
		ApplicationModule,
		MetricsModule,
		httpFX.HTTPModule,

		// Test that we can get the service
		fx.Invoke(func(service *application.LinkService, store domain.LinkStore) {
			require.NotNil(t, service)
			require.NotNil(t, store)

			// Test basic functionality
			ctx := context.Background()
			req := application.ShortenURLRequest{
				URL: "https://example.com",
			}

			resp, err := service.ShortenURL(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com", resp.OriginalURL)
			assert.Len(t, resp.ShortID, 8)
		}),
	)

	// Start and stop the app to ensure lifecycle works
	app.RequireStart()
	app.RequireStop()
}

func TestFXModules(t *testing.T) {
	// Test that individual modules can be loaded
	tests := []struct {
		name         string
		module       fx.Option
		needsStore   bool
		needsCache   bool
		needsService bool
	}{
		{"InfrastructureModule", InfrastructureModule, false, false, false},
		{"ApplicationModule", ApplicationModule, true, true, false},
		{"HTTPModule", httpFX.HTTPModule, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := []fx.Option{
				tt.module,
				fx.Provide(func() (*config.Config, error) {
					return testConfig(), nil
				}),
				fx.Provide(func() metrics.Registry {
					return metrics.NewNoOpRegistry()
				}),
			}

			if tt.needsStore {
				options = append(options, fx.Provide(func() domain.LinkStore {
					return memory.NewLinkStore()
				}))
			}

			if tt.needsCache {
				options = append(options, fx.Provide(func(cfg *config.Config) (domain.RedirectCache, error) {
					return ProvideRedirectCache(cfg, nil, ProvideLogger(cfg))
				}))
			}

			if tt.needsService {
				options = append(options,
					fx.Provide(ProvideLogger),
					fx.Provide(ProvideAllocator),
					fx.Provide(ProvideResolver),
					fx.Provide(ProvideLinkService),
				)
			}

			// Create a minimal app with just the module
			app := fxtest.New(t, options...)

			// Should be able to start and stop without errors
			app.RequireStart()
			app.RequireStop()
		})
	}
}

func TestConfigModule(t *testing.T) {
	// Test ConfigModule separately since it provides config
	app := fxtest.New(t, ConfigModule)
	app.RequireStart()
	app.RequireStop()
}

func TestProviderFunctions(t *testing.T) {
	t.Run("ProvideLogger", func(t *testing.T) {
		logger := ProvideLogger(testConfig())
		assert.NotNil(t, logger)
	})

	t.Run("ProvideLinkStore", func(t *testing.T) {
		cfg := testConfig()
		logger := ProvideLogger(cfg)

		store, err := ProvideLinkStore(cfg, logger)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("ProvideRedirectCache", func(t *testing.T) {
		cfg := testConfig()
		cfg.Cache.Backend = "memory"
		logger := ProvideLogger(cfg)

		cache, err := ProvideRedirectCache(cfg, nil, logger)
		require.NoError(t, err)
		assert.NotNil(t, cache)
		assert.NoError(t, cache.Ping(context.Background()))
	})

	t.Run("ProvideRedirectCache rejects unknown backend", func(t *testing.T) {
		cfg := testConfig()
		cfg.Cache.Backend = "memcached"
		logger := ProvideLogger(cfg)

		_, err := ProvideRedirectCache(cfg, nil, logger)
		assert.Error(t, err)
	})

	t.Run("ProvideMetricsRegistry", func(t *testing.T) {
		cfg := testConfig()
		registry, err := ProvideMetricsRegistry(cfg)
		require.NoError(t, err)
		assert.NotNil(t, registry)

		cfg.Metrics = config.MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "test",
			Subsystem: "test",
		}
		registry, err = ProvideMetricsRegistry(cfg)
		require.NoError(t, err)
		assert.NotNil(t, registry.GetHandler())
	})

	t.Run("ProvideHTTPServer", func(t *testing.T) {
		cfg := testConfig()

		// Create a chi router for testing
		router := chi.NewRouter()

		server := httpFX.ProvideHTTPServer(cfg, router)
		assert.NotNil(t, server)
		assert.Equal(t, ":8080", server.Addr())
	})
}
