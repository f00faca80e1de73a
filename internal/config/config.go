package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/cloudprice/internal/auth"
	"github.com/davidbz/cloudprice/internal/cache/redis"
	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/provider/aws"
	"github.com/davidbz/cloudprice/internal/provider/azure"
	"github.com/davidbz/cloudprice/internal/provider/gcp"
)

// Cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config represents the service configuration.
type Config struct {
	Server        ServerConfig
	CORS          CORSConfig
	Cache         CacheConfig
	Redis         redis.Config
	Aggregator    domain.AggregatorConfig
	AWS           aws.Config
	Azure         azure.Config
	GCP           gcp.Config
	Auth          auth.Config
	Observability ObservabilityConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int `env:"SERVER_PORT"             envDefault:"8080"`
	ReadTimeout     int `env:"SERVER_READ_TIMEOUT"     envDefault:"30"`
	WriteTimeout    int `env:"SERVER_WRITE_TIMEOUT"    envDefault:"30"`
	ShutdownTimeout int `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"http://localhost:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend string `env:"CACHE_BACKEND" envDefault:"redis"`
}

// ObservabilityConfig contains tracing settings.
type ObservabilityConfig struct {
	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	ServiceName    string `env:"SERVICE_NAME"    envDefault:"cloudprice"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out

	Server        *ServerConfig
	CORS          *CORSConfig
	Cache         *CacheConfig
	Redis         *redis.Config
	Aggregator    *domain.AggregatorConfig
	AWS           *aws.Config
	Azure         *azure.Config
	GCP           *gcp.Config
	Auth          *auth.Config
	Observability *ObservabilityConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	if c.Aggregator.ProviderTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive, got %s", c.Aggregator.ProviderTimeout)
	}

	return nil
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Out:           dig.Out{},
		Server:        &cfg.Server,
		CORS:          &cfg.CORS,
		Cache:         &cfg.Cache,
		Redis:         &cfg.Redis,
		Aggregator:    &cfg.Aggregator,
		AWS:           &cfg.AWS,
		Azure:         &cfg.Azure,
		GCP:           &cfg.GCP,
		Auth:          &cfg.Auth,
		Observability: &cfg.Observability,
	}
}
