// Package ratelimit decorates a PriceProvider with a token bucket so bursts of
// cache misses do not exceed a cloud's API quota.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/davidbz/cloudprice/internal/domain"
)

// Limits configures the token bucket for one provider. A zero PerSecond
// disables limiting.
type Limits struct {
	PerSecond float64
	Burst     int
}

// Provider wraps a PriceProvider; every outbound call first takes a token.
type Provider struct {
	next    domain.PriceProvider
	limiter *rate.Limiter
}

// Wrap returns p unchanged when limits are disabled.
func Wrap(p domain.PriceProvider, limits Limits) domain.PriceProvider {
	if p == nil || limits.PerSecond <= 0 {
		return p
	}
	burst := limits.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Provider{
		next:    p,
		limiter: rate.NewLimiter(rate.Limit(limits.PerSecond), burst),
	}
}

// Name returns the wrapped provider's name.
func (p *Provider) Name() domain.ProviderName {
	return p.next.Name()
}

// FetchPrices waits for a token, then delegates.
func (p *Provider) FetchPrices(ctx context.Context, resourceKind, region string) ([]domain.PriceRecord, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.next.FetchPrices(ctx, resourceKind, region)
}

// ListRegions waits for a token, then delegates.
func (p *Provider) ListRegions(ctx context.Context) (domain.Catalog, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.next.ListRegions(ctx)
}

// ListResourceKinds waits for a token, then delegates.
func (p *Provider) ListResourceKinds(ctx context.Context) (domain.Catalog, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.next.ListResourceKinds(ctx)
}

// Close closes the wrapped provider.
func (p *Provider) Close() error {
	return p.next.Close()
}

func (p *Provider) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit for %s: %w", p.next.Name(), err)
	}
	return nil
}
