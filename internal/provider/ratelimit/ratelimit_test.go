package ratelimit_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/provider/ratelimit"
)

type countingProvider struct {
	calls  atomic.Int32
	closed atomic.Bool
}

func (c *countingProvider) Name() domain.ProviderName { return domain.ProviderAWS }

func (c *countingProvider) FetchPrices(_ context.Context, kind, region string) ([]domain.PriceRecord, error) {
	c.calls.Add(1)
	return []domain.PriceRecord{{
		ResourceKind:  kind,
		Region:        region,
		OnDemandPrice: 0.0464,
		Provider:      domain.ProviderAWS,
	}}, nil
}

func (c *countingProvider) ListRegions(_ context.Context) (domain.Catalog, error) {
	c.calls.Add(1)
	return domain.Catalog{"us-east-1": "US East (N. Virginia)"}, nil
}

func (c *countingProvider) ListResourceKinds(_ context.Context) (domain.Catalog, error) {
	c.calls.Add(1)
	return domain.Catalog{"t2.micro": "t2.micro"}, nil
}

func (c *countingProvider) Close() error {
	c.closed.Store(true)
	return nil
}

func TestWrap(t *testing.T) {
	t.Run("should return provider unchanged when limiting is disabled", func(t *testing.T) {
		inner := &countingProvider{}

		wrapped := ratelimit.Wrap(inner, ratelimit.Limits{PerSecond: 0, Burst: 5})
		require.Same(t, inner, wrapped)
	})

	t.Run("should delegate calls within the burst", func(t *testing.T) {
		inner := &countingProvider{}
		wrapped := ratelimit.Wrap(inner, ratelimit.Limits{PerSecond: 1, Burst: 3})
		ctx := context.Background()

		records, err := wrapped.FetchPrices(ctx, "t2.micro", "us-east-1")
		require.NoError(t, err)
		require.Len(t, records, 1)

		_, err = wrapped.ListRegions(ctx)
		require.NoError(t, err)
		_, err = wrapped.ListResourceKinds(ctx)
		require.NoError(t, err)

		require.Equal(t, int32(3), inner.calls.Load())
		require.Equal(t, domain.ProviderAWS, wrapped.Name())
	})

	t.Run("should fail when no token is available before the deadline", func(t *testing.T) {
		inner := &countingProvider{}
		wrapped := ratelimit.Wrap(inner, ratelimit.Limits{PerSecond: 0.01, Burst: 1})

		_, err := wrapped.FetchPrices(context.Background(), "t2.micro", "us-east-1")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err = wrapped.FetchPrices(ctx, "t2.micro", "us-east-1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "rate limit for aws")
		require.Equal(t, int32(1), inner.calls.Load())
	})

	t.Run("should close the wrapped provider", func(t *testing.T) {
		inner := &countingProvider{}
		wrapped := ratelimit.Wrap(inner, ratelimit.Limits{PerSecond: 5, Burst: 1})

		require.NoError(t, wrapped.Close())
		require.True(t, inner.closed.Load())
	})
}
