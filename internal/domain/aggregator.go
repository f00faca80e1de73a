package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/davidbz/cloudprice/internal/observability"
)

const defaultProviderTimeout = 15 * time.Second

// AggregatorConfig controls provider timeouts and cache lifetimes.
type AggregatorConfig struct {
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT"  envDefault:"15s"`
	PriceTTL        time.Duration `env:"CACHE_PRICE_TTL"   envDefault:"1h"`
	CatalogTTL      time.Duration `env:"CACHE_CATALOG_TTL" envDefault:"24h"`
}

func (c *AggregatorConfig) withDefaults() AggregatorConfig {
	out := AggregatorConfig{
		ProviderTimeout: defaultProviderTimeout,
		PriceTTL:        DefaultPriceTTL,
		CatalogTTL:      DefaultCatalogTTL,
	}
	if c == nil {
		return out
	}
	if c.ProviderTimeout > 0 {
		out.ProviderTimeout = c.ProviderTimeout
	}
	if c.PriceTTL > 0 {
		out.PriceTTL = c.PriceTTL
	}
	if c.CatalogTTL > 0 {
		out.CatalogTTL = c.CatalogTTL
	}
	return out
}

// Aggregator answers pricing and catalog queries by fanning out to every
// registered provider, merging what succeeded and caching non-empty results.
type Aggregator struct {
	registry ProviderRegistry
	cache    CacheStore
	metrics  *observability.Metrics
	cfg      AggregatorConfig
}

// NewAggregator creates the aggregation service (DI constructor).
// A nil cache disables caching; a nil metrics records nothing.
func NewAggregator(
	registry ProviderRegistry,
	cache CacheStore,
	metrics *observability.Metrics,
	cfg *AggregatorConfig,
) *Aggregator {
	return &Aggregator{
		registry: registry,
		cache:    cache,
		metrics:  metrics,
		cfg:      cfg.withDefaults(),
	}
}

// GetComputePrices returns one record per provider that priced the query.
// Provider failures never surface as an error; only an invalid query does.
func (a *Aggregator) GetComputePrices(ctx context.Context, query PriceQuery) (*PriceAggregation, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	ctx = observability.WithQuery(ctx, query.ResourceKind, query.Region)
	ctx, span := observability.Tracer().Start(ctx, "Aggregator.GetComputePrices",
		trace.WithAttributes(
			attribute.String("resource_kind", query.ResourceKind),
			attribute.String("region", query.Region),
		))
	defer span.End()

	logger := observability.FromContext(ctx)
	key := query.CacheKey()

	if records, ok := a.cachedRecords(ctx, key); ok {
		a.metrics.ObserveCacheLookup("compute", true)
		logger.Info("cache HIT - returning cached prices",
			observability.String("cache_key", key),
			observability.Int("records", len(records)))
		return &PriceAggregation{Records: records, Failures: nil, FromCache: true}, nil
	}
	a.metrics.ObserveCacheLookup("compute", false)

	outcomes := fanOut[[]PriceRecord](ctx, a, "PriceProvider.FetchPrices",
		func(ctx context.Context, p PriceProvider) ([]PriceRecord, error) {
			return p.FetchPrices(ctx, query.ResourceKind, query.Region)
		})

	result := &PriceAggregation{Records: []PriceRecord{}, Failures: nil, FromCache: false}
	for _, o := range outcomes {
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
			continue
		}
		result.Records = append(result.Records, normalizeRecords(ctx, o.provider, o.value)...)
	}

	logger.Info("price aggregation completed",
		observability.Int("records", len(result.Records)),
		observability.Strings("failed_providers", result.FailedProviders()))

	if len(result.Records) == 0 {
		logger.Info("empty aggregation not cached", observability.String("cache_key", key))
		return result, nil
	}

	data, err := encodeRecords(result.Records)
	if err != nil {
		logger.Warn("failed to encode prices for cache", observability.Error(err))
		return result, nil
	}
	a.store(ctx, key, data, a.cfg.PriceTTL)

	return result, nil
}

// GetRegions returns the union of every provider's regions.
func (a *Aggregator) GetRegions(ctx context.Context) (*CatalogAggregation, error) {
	return a.getCatalog(ctx, RegionsCacheKey, "PriceProvider.ListRegions",
		func(ctx context.Context, p PriceProvider) (Catalog, error) {
			return p.ListRegions(ctx)
		})
}

// GetInstanceTypes returns the union of every provider's instance types.
func (a *Aggregator) GetInstanceTypes(ctx context.Context) (*CatalogAggregation, error) {
	return a.getCatalog(ctx, InstanceTypesCacheKey, "PriceProvider.ListResourceKinds",
		func(ctx context.Context, p PriceProvider) (Catalog, error) {
			return p.ListResourceKinds(ctx)
		})
}

// InvalidatePrices drops the cached entry for one query.
func (a *Aggregator) InvalidatePrices(ctx context.Context, query PriceQuery) (bool, error) {
	if err := query.Validate(); err != nil {
		return false, err
	}
	if a.cache == nil {
		return false, nil
	}
	return a.cache.Delete(ctx, query.CacheKey()), nil
}

// ClearCache removes every cached entry.
func (a *Aggregator) ClearCache(ctx context.Context) bool {
	if a.cache == nil {
		return false
	}
	observability.FromContext(ctx).Info("clearing cache")
	return a.cache.Clear(ctx)
}

func (a *Aggregator) getCatalog(
	ctx context.Context,
	key string,
	operation string,
	call func(ctx context.Context, p PriceProvider) (Catalog, error),
) (*CatalogAggregation, error) {
	ctx, span := observability.Tracer().Start(ctx, "Aggregator.GetCatalog",
		trace.WithAttributes(attribute.String("cache_key", key)))
	defer span.End()

	logger := observability.FromContext(ctx)

	if catalog, ok := a.cachedCatalog(ctx, key); ok {
		a.metrics.ObserveCacheLookup(key, true)
		logger.Info("cache HIT - returning cached catalog",
			observability.String("cache_key", key),
			observability.Int("entries", len(catalog)))
		return &CatalogAggregation{Entries: catalog, Failures: nil, FromCache: true}, nil
	}
	a.metrics.ObserveCacheLookup(key, false)

	outcomes := fanOut[Catalog](ctx, a, operation, call)

	result := &CatalogAggregation{Entries: Catalog{}, Failures: nil, FromCache: false}
	catalogs := make([]Catalog, 0, len(outcomes))
	for _, o := range outcomes {
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
			continue
		}
		catalogs = append(catalogs, o.value)
	}
	result.Entries = MergeCatalogs(catalogs...)

	logger.Info("catalog aggregation completed",
		observability.String("cache_key", key),
		observability.Int("entries", len(result.Entries)),
		observability.Strings("failed_providers", result.FailedProviders()))

	if len(result.Entries) == 0 {
		logger.Info("empty aggregation not cached", observability.String("cache_key", key))
		return result, nil
	}

	data, err := encodeCatalog(result.Entries)
	if err != nil {
		logger.Warn("failed to encode catalog for cache", observability.Error(err))
		return result, nil
	}
	a.store(ctx, key, data, a.cfg.CatalogTTL)

	return result, nil
}

// MergeCatalogs unions catalogs in order; on a duplicate id the later one wins.
func MergeCatalogs(catalogs ...Catalog) Catalog {
	merged := Catalog{}
	for _, c := range catalogs {
		for id, name := range c {
			merged[id] = name
		}
	}
	return merged
}

func (a *Aggregator) cachedRecords(ctx context.Context, key string) ([]PriceRecord, bool) {
	if a.cache == nil {
		return nil, false
	}
	data, ok := a.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	records, err := decodeRecords(data)
	if err != nil {
		observability.FromContext(ctx).Warn("discarding unreadable cache entry",
			observability.String("cache_key", key), observability.Error(err))
		return nil, false
	}
	if len(records) == 0 {
		return nil, false
	}
	return records, true
}

func (a *Aggregator) cachedCatalog(ctx context.Context, key string) (Catalog, bool) {
	if a.cache == nil {
		return nil, false
	}
	data, ok := a.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	catalog, err := decodeCatalog(data)
	if err != nil {
		observability.FromContext(ctx).Warn("discarding unreadable cache entry",
			observability.String("cache_key", key), observability.Error(err))
		return nil, false
	}
	if len(catalog) == 0 {
		return nil, false
	}
	return catalog, true
}

func (a *Aggregator) store(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if a.cache == nil {
		return
	}
	if !a.cache.Set(ctx, key, data, ttl) {
		observability.FromContext(ctx).Warn("failed to store in cache",
			observability.String("cache_key", key))
		return
	}
	observability.FromContext(ctx).Debug("stored in cache",
		observability.String("cache_key", key),
		observability.Duration("ttl", ttl))
}

// normalizeRecords stamps the producing provider on every record and drops
// records with an unusable on-demand price.
func normalizeRecords(ctx context.Context, provider ProviderName, records []PriceRecord) []PriceRecord {
	out := make([]PriceRecord, 0, len(records))
	for _, r := range records {
		if r.OnDemandPrice < 0 || math.IsNaN(r.OnDemandPrice) || math.IsInf(r.OnDemandPrice, 0) {
			observability.FromContext(ctx).Debug("dropping record with invalid on-demand price",
				observability.String("provider", string(provider)),
				observability.Float64("on_demand_price", r.OnDemandPrice))
			continue
		}
		if r.Provider != provider {
			observability.FromContext(ctx).Warn("record provider mismatch, restamping",
				observability.String("provider", string(provider)),
				observability.String("record_provider", string(r.Provider)))
			r.Provider = provider
		}
		out = append(out, r)
	}
	return out
}

type callOutcome[T any] struct {
	provider ProviderName
	value    T
	failure  *ProviderFailure
}

// fanOut calls every registered provider concurrently and waits for all of
// them. Outcomes keep registration order.
func fanOut[T any](
	ctx context.Context,
	a *Aggregator,
	operation string,
	call func(ctx context.Context, p PriceProvider) (T, error),
) []callOutcome[T] {
	providers := a.registry.All(ctx)
	outcomes := make([]callOutcome[T], len(providers))

	var group errgroup.Group
	for i, p := range providers {
		group.Go(func() error {
			outcomes[i] = invoke[T](ctx, a, operation, p, call)
			return nil
		})
	}
	// Failures are carried in outcomes; no goroutine returns an error.
	_ = group.Wait()

	return outcomes
}

type callResult[T any] struct {
	value T
	err   error
}

// invoke runs one provider call under its own timeout. A provider that
// ignores its context is abandoned once the timeout fires; its goroutine
// exits only when the adapter returns, so adapters must honour ctx.
func invoke[T any](
	ctx context.Context,
	a *Aggregator,
	operation string,
	p PriceProvider,
	call func(ctx context.Context, p PriceProvider) (T, error),
) callOutcome[T] {
	name := p.Name()

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.ProviderTimeout)
	defer cancel()
	callCtx = observability.WithProvider(callCtx, string(name))
	callCtx, span := observability.Tracer().Start(callCtx, operation,
		trace.WithAttributes(attribute.String("provider", string(name))))
	defer span.End()

	start := time.Now()
	done := make(chan callResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- callResult[T]{value: zero, err: fmt.Errorf("provider %s panicked: %v", name, r)}
			}
		}()
		value, err := call(callCtx, p)
		done <- callResult[T]{value: value, err: err}
	}()

	var res callResult[T]
	select {
	case res = <-done:
	case <-callCtx.Done():
		res.err = fmt.Errorf("provider %s: %w", name, callCtx.Err())
	}
	elapsed := time.Since(start)

	logger := observability.FromContext(callCtx)
	if res.err == nil {
		a.metrics.ObserveProviderCall(string(name), observability.OutcomeSuccess, elapsed)
		return callOutcome[T]{provider: name, value: res.value, failure: nil}
	}

	timedOut := errors.Is(res.err, context.DeadlineExceeded)
	outcome := observability.OutcomeFailure
	if timedOut {
		outcome = observability.OutcomeTimeout
	}
	a.metrics.ObserveProviderCall(string(name), outcome, elapsed)
	span.RecordError(res.err)

	logger.Warn("provider call failed",
		observability.String("operation", operation),
		observability.Bool("timed_out", timedOut),
		observability.Duration("elapsed", elapsed),
		observability.Error(res.err))

	var zero T
	return callOutcome[T]{
		provider: name,
		value:    zero,
		failure:  &ProviderFailure{Provider: name, Err: res.err, TimedOut: timedOut},
	}
}
