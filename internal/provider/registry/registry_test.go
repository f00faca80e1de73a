package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/provider/registry"
)

// mockProvider is a mock implementation of domain.PriceProvider for testing.
type mockProvider struct {
	name     domain.ProviderName
	closeErr error
	closed   bool
}

func (m *mockProvider) Name() domain.ProviderName {
	return m.name
}

func (m *mockProvider) FetchPrices(_ context.Context, _, _ string) ([]domain.PriceRecord, error) {
	return []domain.PriceRecord{}, nil
}

func (m *mockProvider) ListRegions(_ context.Context) (domain.Catalog, error) {
	return domain.Catalog{}, nil
}

func (m *mockProvider) ListResourceKinds(_ context.Context) (domain.Catalog, error) {
	return domain.Catalog{}, nil
}

func (m *mockProvider) Close() error {
	m.closed = true
	return m.closeErr
}

func TestRegistry_Register(t *testing.T) {
	t.Run("should register provider successfully", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		err := reg.Register(ctx, &mockProvider{name: "aws"})
		require.NoError(t, err)

		registered, err := reg.Get(ctx, "aws")
		require.NoError(t, err)
		require.Equal(t, domain.ProviderAWS, registered.Name())
	})

	t.Run("should return error when provider is nil", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(context.Background(), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "provider cannot be nil")
	})

	t.Run("should return error when provider name is empty", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(context.Background(), &mockProvider{name: ""})
		require.Error(t, err)
		require.Contains(t, err.Error(), "provider name cannot be empty")
	})

	t.Run("should return error when provider already registered", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		require.NoError(t, reg.Register(ctx, &mockProvider{name: "gcp"}))

		err := reg.Register(ctx, &mockProvider{name: "gcp"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "already registered")
	})
}

func TestRegistry_Get(t *testing.T) {
	t.Run("should return error when provider name is empty", func(t *testing.T) {
		reg := registry.NewRegistry()

		_, err := reg.Get(context.Background(), "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "provider name cannot be empty")
	})

	t.Run("should return error when provider not found", func(t *testing.T) {
		reg := registry.NewRegistry()

		_, err := reg.Get(context.Background(), "oracle")
		require.Error(t, err)
		require.Contains(t, err.Error(), "not found")
	})
}

func TestRegistry_ListAndAll(t *testing.T) {
	t.Run("should return empty list when no providers registered", func(t *testing.T) {
		reg := registry.NewRegistry()

		names, err := reg.List(context.Background())
		require.NoError(t, err)
		require.NotNil(t, names)
		require.Empty(t, names)
		require.Empty(t, reg.All(context.Background()))
	})

	t.Run("should keep registration order", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		for _, name := range []domain.ProviderName{"gcp", "aws", "azure"} {
			require.NoError(t, reg.Register(ctx, &mockProvider{name: name}))
		}

		names, err := reg.List(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"gcp", "aws", "azure"}, names)

		all := reg.All(ctx)
		require.Len(t, all, 3)
		require.Equal(t, domain.ProviderGCP, all[0].Name())
		require.Equal(t, domain.ProviderAzure, all[2].Name())
	})
}

func TestRegistry_Close(t *testing.T) {
	t.Run("should close every provider and join errors", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		aws := &mockProvider{name: "aws"}
		azure := &mockProvider{name: "azure", closeErr: errors.New("boom")}
		require.NoError(t, reg.Register(ctx, aws))
		require.NoError(t, reg.Register(ctx, azure))

		err := reg.Close()
		require.Error(t, err)
		require.Contains(t, err.Error(), "azure")
		require.True(t, aws.closed)
		require.True(t, azure.closed)
	})
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Run("should handle concurrent registrations safely", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		done := make(chan bool)

		for i := range 10 {
			go func(idx int) {
				provider := &mockProvider{name: domain.ProviderName(rune('a' + idx))}
				_ = reg.Register(ctx, provider)
				done <- true
			}(i)
		}

		for range 10 {
			<-done
		}

		names, err := reg.List(ctx)
		require.NoError(t, err)
		require.Len(t, names, 10)
		require.Len(t, reg.All(ctx), 10)
	})
}
