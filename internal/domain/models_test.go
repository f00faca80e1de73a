package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/cloudprice/internal/domain"
)

func TestNewPriceQuery(t *testing.T) {
	t.Run("should trim both dimensions", func(t *testing.T) {
		q, err := domain.NewPriceQuery("  t2.micro ", " us-east-1\t")
		require.NoError(t, err)
		require.Equal(t, "t2.micro", q.ResourceKind)
		require.Equal(t, "us-east-1", q.Region)
	})

	t.Run("should reject a missing instance type", func(t *testing.T) {
		_, err := domain.NewPriceQuery(" ", "us-east-1")
		require.ErrorIs(t, err, domain.ErrInvalidQuery)
		require.Contains(t, err.Error(), "resource kind is required")
	})

	t.Run("should reject a missing region", func(t *testing.T) {
		_, err := domain.NewPriceQuery("t2.micro", "")
		require.ErrorIs(t, err, domain.ErrInvalidQuery)
		require.Contains(t, err.Error(), "region is required")
	})
}

func TestComputeCacheKey(t *testing.T) {
	t.Run("should build the compute key", func(t *testing.T) {
		q := domain.PriceQuery{ResourceKind: "t2.micro", Region: "us-east-1"}
		require.Equal(t, "compute:t2.micro:us-east-1", q.CacheKey())
	})

	t.Run("should keep colons in components unambiguous", func(t *testing.T) {
		a := domain.ComputeCacheKey("a:b", "c")
		b := domain.ComputeCacheKey("a", "b:c")

		require.Equal(t, "compute:a%3Ab:c", a)
		require.Equal(t, "compute:a:b%3Ac", b)
		require.NotEqual(t, a, b)
	})

	t.Run("should escape percent signs before colons", func(t *testing.T) {
		require.Equal(t, "compute:a%253A:r", domain.ComputeCacheKey("a%3A", "r"))
	})
}

func TestFailedProviders(t *testing.T) {
	t.Run("should list failures in order", func(t *testing.T) {
		agg := domain.PriceAggregation{Failures: []domain.ProviderFailure{
			{Provider: domain.ProviderAzure},
			{Provider: domain.ProviderGCP},
		}}
		require.Equal(t, []string{"azure", "gcp"}, agg.FailedProviders())
	})

	t.Run("should return an empty list without failures", func(t *testing.T) {
		agg := domain.CatalogAggregation{}
		require.NotNil(t, agg.FailedProviders())
		require.Empty(t, agg.FailedProviders())
	})
}
