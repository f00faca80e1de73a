package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/davidbz/cloudprice/internal/domain"
)

// Registry implements the ProviderRegistry interface.
// Providers are kept in registration order so merges are deterministic.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.ProviderName]domain.PriceProvider
	order     []domain.ProviderName
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:        sync.RWMutex{},
		providers: make(map[domain.ProviderName]domain.PriceProvider),
		order:     nil,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(_ context.Context, provider domain.PriceProvider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.providers[name] = provider
	r.order = append(r.order, name)

	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(_ context.Context, name domain.ProviderName) (domain.PriceProvider, error) {
	if name == "" {
		return nil, errors.New("provider name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}

	return provider, nil
}

// List returns all provider names in registration order.
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		names = append(names, string(name))
	}

	return names, nil
}

// All returns a snapshot of the providers in registration order.
func (r *Registry) All(_ context.Context) []domain.PriceProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]domain.PriceProvider, 0, len(r.order))
	for _, name := range r.order {
		providers = append(providers, r.providers[name])
	}

	return providers
}

// Close closes every provider and joins their errors.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, name := range r.order {
		if err := r.providers[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}
