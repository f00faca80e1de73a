package domain

import (
	"context"
	"time"
)

// PriceProvider adapts one cloud's pricing and catalog sources.
// FetchPrices returns an empty slice, not an error, when there is no data.
// Errors are reserved for transport and authentication failures.
// Every method must return promptly once ctx is done.
type PriceProvider interface {
	// Name returns the provider identifier stamped on every record.
	Name() ProviderName

	// FetchPrices returns records for an instance type in a region.
	FetchPrices(ctx context.Context, resourceKind, region string) ([]PriceRecord, error)

	// ListRegions returns region id to display name.
	ListRegions(ctx context.Context) (Catalog, error)

	// ListResourceKinds returns instance type id to display name.
	ListResourceKinds(ctx context.Context) (Catalog, error)

	// Close releases outbound connections.
	Close() error
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider PriceProvider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, name ProviderName) (PriceProvider, error)

	// List returns the registered provider names in registration order.
	List(ctx context.Context) ([]string, error)

	// All returns the registered providers in registration order.
	All(ctx context.Context) []PriceProvider

	// Close closes every registered provider.
	Close() error
}

// CacheStore is a byte store with TTLs. Implementations swallow their own
// failures: a broken store reads as empty and rejects writes.
type CacheStore interface {
	// Get returns the value if present and not expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key, overwriting any previous entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool

	// Delete removes key.
	Delete(ctx context.Context, key string) bool

	// Clear removes every entry.
	Clear(ctx context.Context) bool
}
