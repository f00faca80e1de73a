package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuery is returned when a price query is missing a dimension.
	ErrInvalidQuery = errors.New("invalid price query")

	// ErrUnauthorized is returned when an upstream API rejects the credentials.
	ErrUnauthorized = errors.New("upstream rejected credentials")
)

// ProviderName identifies a pricing provider.
type ProviderName string

const (
	ProviderAWS   ProviderName = "aws"
	ProviderAzure ProviderName = "azure"
	ProviderGCP   ProviderName = "gcp"
)

// PriceQuery identifies what is being priced.
type PriceQuery struct {
	ResourceKind string
	Region       string
}

// NewPriceQuery trims and validates the query dimensions.
func NewPriceQuery(resourceKind, region string) (PriceQuery, error) {
	q := PriceQuery{
		ResourceKind: strings.TrimSpace(resourceKind),
		Region:       strings.TrimSpace(region),
	}
	if err := q.Validate(); err != nil {
		return PriceQuery{}, err
	}
	return q, nil
}

// Validate checks that both dimensions are set.
func (q PriceQuery) Validate() error {
	if q.ResourceKind == "" {
		return fmt.Errorf("%w: resource kind is required", ErrInvalidQuery)
	}
	if q.Region == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidQuery)
	}
	return nil
}

// CacheKey returns the compute namespace key for the query.
func (q PriceQuery) CacheKey() string {
	return ComputeCacheKey(q.ResourceKind, q.Region)
}

// PriceRecord is one provider's hourly USD pricing for a query.
// Optional prices are nil when the provider does not offer that model.
type PriceRecord struct {
	ResourceKind    string       `json:"instance_type"`
	Region          string       `json:"region"`
	OnDemandPrice   float64      `json:"on_demand_price"`
	SpotPrice       *float64     `json:"spot_price"`
	Reserved1YPrice *float64     `json:"reserved_price_1y"`
	Reserved3YPrice *float64     `json:"reserved_price_3y"`
	Provider        ProviderName `json:"provider"`
}

// Price returns a pointer to v for the optional price fields.
func Price(v float64) *float64 {
	return &v
}

// Catalog maps a region or instance type id to its display name.
type Catalog map[string]string

// ProviderFailure records one provider call that did not succeed.
type ProviderFailure struct {
	Provider ProviderName
	Err      error
	TimedOut bool
}

// PriceAggregation is the merged result of a pricing query.
type PriceAggregation struct {
	Records   []PriceRecord
	Failures  []ProviderFailure
	FromCache bool
}

// FailedProviders lists the providers that failed, in registration order.
func (a *PriceAggregation) FailedProviders() []string {
	return failedProviders(a.Failures)
}

// CatalogAggregation is the merged result of a catalog query.
type CatalogAggregation struct {
	Entries   Catalog
	Failures  []ProviderFailure
	FromCache bool
}

// FailedProviders lists the providers that failed, in registration order.
func (a *CatalogAggregation) FailedProviders() []string {
	return failedProviders(a.Failures)
}

func failedProviders(failures []ProviderFailure) []string {
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, string(f.Provider))
	}
	return names
}
