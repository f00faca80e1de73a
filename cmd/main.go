package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/cloudprice/internal/auth"
	"github.com/davidbz/cloudprice/internal/cache/memory"
	"github.com/davidbz/cloudprice/internal/cache/redis"
	"github.com/davidbz/cloudprice/internal/config"
	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/http"
	"github.com/davidbz/cloudprice/internal/http/middleware"
	"github.com/davidbz/cloudprice/internal/observability"
	"github.com/davidbz/cloudprice/internal/provider/aws"
	"github.com/davidbz/cloudprice/internal/provider/azure"
	"github.com/davidbz/cloudprice/internal/provider/gcp"
	"github.com/davidbz/cloudprice/internal/provider/ratelimit"
	"github.com/davidbz/cloudprice/internal/provider/registry"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// application is the set of long-lived components a command runs against.
type application struct {
	dig.In

	Logger     *zap.Logger
	Tracing    *observability.Tracing
	Registry   domain.ProviderRegistry
	Cache      domain.CacheStore
	Aggregator *domain.Aggregator
	Server     *http.Server
}

// close releases providers, the cache connection and the tracer.
func (a application) close(ctx context.Context) {
	logger := observability.FromContext(ctx)

	if err := a.Registry.Close(); err != nil {
		logger.Warn("failed to close providers", observability.Error(err))
	}
	if closer, ok := a.Cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close cache", observability.Error(err))
		}
	}
	if err := a.Tracing.Shutdown(ctx); err != nil {
		logger.Warn("failed to flush traces", observability.Error(err))
	}
	_ = a.Logger.Sync()
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func(cfg *config.ObservabilityConfig) (*observability.Tracing, error) {
		return observability.InitTracing(cfg.TracingEnabled, cfg.ServiceName)
	}); err != nil {
		log.Fatalf("Failed to provide tracing: %v", err)
	}
	if err := container.Provide(observability.NewMetrics); err != nil {
		log.Fatalf("Failed to provide metrics: %v", err)
	}

	// Cache
	if err := container.Provide(newCacheStore); err != nil {
		log.Fatalf("Failed to provide cache store: %v", err)
	}

	// Providers
	if err := container.Provide(newProviderRegistry); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewAggregator); err != nil {
		log.Fatalf("Failed to provide aggregator: %v", err)
	}
	if err := container.Provide(func(cfg *auth.Config, cache domain.CacheStore) *auth.Service {
		return auth.NewService(*cfg, cache)
	}); err != nil {
		log.Fatalf("Failed to provide auth service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// newCacheStore depends on the logger so it is initialized before the first
// cache warning. An unreachable redis is logged and kept; its operations
// then degrade to misses.
func newCacheStore(cfg *config.CacheConfig, redisCfg *redis.Config, _ *zap.Logger) domain.CacheStore {
	ctx := context.Background()
	logger := observability.FromContext(ctx)

	if cfg.Backend == config.CacheBackendMemory {
		logger.Info("using in-memory cache")
		return memory.NewStore()
	}

	client, err := redis.NewClient(ctx, *redisCfg)
	if err != nil {
		logger.Warn("redis unreachable, cache will miss until it recovers",
			observability.String("addr", redisCfg.Addr),
			observability.Error(err))
	} else {
		logger.Info("connected to redis", observability.String("addr", redisCfg.Addr))
	}

	return redis.NewStore(client)
}

func newProviderRegistry(
	awsCfg *aws.Config,
	azureCfg *azure.Config,
	gcpCfg *gcp.Config,
	_ *zap.Logger,
) (domain.ProviderRegistry, error) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	awsProvider, err := aws.NewProvider(ctx, *awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS provider: %w", err)
	}
	azureProvider, err := azure.NewProvider(*azureCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure provider: %w", err)
	}
	gcpProvider, err := gcp.NewProvider(*gcpCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP provider: %w", err)
	}

	providers := []domain.PriceProvider{
		ratelimit.Wrap(awsProvider, ratelimit.Limits{PerSecond: awsCfg.RateLimit, Burst: awsCfg.RateBurst}),
		ratelimit.Wrap(azureProvider, ratelimit.Limits{PerSecond: azureCfg.RateLimit, Burst: azureCfg.RateBurst}),
		ratelimit.Wrap(gcpProvider, ratelimit.Limits{PerSecond: gcpCfg.RateLimit, Burst: gcpCfg.RateBurst}),
	}
	for _, p := range providers {
		if err := reg.Register(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to register %s provider: %w", p.Name(), err)
		}
	}

	observability.FromContext(ctx).Info("providers registered",
		observability.Int("count", len(providers)),
		observability.Bool("aws_live", awsCfg.Live),
		observability.Bool("azure_live", azureCfg.Live),
		observability.Bool("gcp_live", gcpCfg.APIKey != ""))

	return reg, nil
}
