// Package gcp prices Compute Engine machine types from the Cloud Billing
// catalog API.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/httpclient"
	"github.com/davidbz/cloudprice/internal/observability"
)

const defaultMaxPages = 10

// Provider implements the domain.PriceProvider interface for GCP.
type Provider struct {
	client   *http.Client
	apiKey   string
	baseURL  string
	maxPages int
}

// NewProvider creates a new GCP provider. Without an API key it serves
// sample prices.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey != "" {
		if config.BaseURL == "" {
			return nil, errors.New("GCP billing URL is required")
		}
		if _, err := url.ParseRequestURI(config.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid GCP billing URL: %w", err)
		}
	}

	maxPages := config.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &Provider{
		client:   httpclient.New(config.Timeout),
		apiKey:   config.APIKey,
		baseURL:  config.BaseURL,
		maxPages: maxPages,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() domain.ProviderName {
	return domain.ProviderGCP
}

// FetchPrices returns at most one record for the machine type and region.
func (p *Provider) FetchPrices(ctx context.Context, resourceKind, region string) ([]domain.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.apiKey == "" {
		return []domain.PriceRecord{{
			ResourceKind:    resourceKind,
			Region:          region,
			OnDemandPrice:   sampleOnDemand,
			SpotPrice:       domain.Price(sampleSpot),
			Reserved1YPrice: domain.Price(sampleReserved1Y),
			Reserved3YPrice: domain.Price(sampleReserved3Y),
			Provider:        domain.ProviderGCP,
		}}, nil
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling GCP Cloud Billing catalog API")

	prices := map[pricingModel]float64{}
	token := ""
	for pages := 0; pages < p.maxPages; pages++ {
		var page skuPage
		if err := httpclient.GetJSON(ctx, p.client, p.pageURL(resourceKind, region, token), nil, &page); err != nil {
			logger.Error("GCP Cloud Billing API call failed", observability.Error(err))
			return nil, fmt.Errorf("GCP Cloud Billing API call failed: %w", err)
		}

		for _, raw := range page.Skus {
			s, err := decodeSKU(raw)
			if err != nil {
				logger.Debug("skipping malformed sku", observability.Error(err))
				continue
			}
			if !s.servesRegion(region) {
				continue
			}
			model := classify(s)
			if model == modelUnknown {
				continue
			}
			if _, seen := prices[model]; seen {
				continue
			}
			price, err := s.price()
			if err != nil {
				logger.Debug("skipping sku",
					observability.String("sku_id", s.SkuID),
					observability.Error(err))
				continue
			}
			prices[model] = price
		}

		token = page.NextPageToken
		if token == "" {
			break
		}
	}

	onDemand, ok := prices[modelOnDemand]
	if !ok {
		logger.Debug("no on-demand price found")
		return []domain.PriceRecord{}, nil
	}

	return []domain.PriceRecord{{
		ResourceKind:    resourceKind,
		Region:          region,
		OnDemandPrice:   onDemand,
		SpotPrice:       optional(prices, modelSpot),
		Reserved1YPrice: optional(prices, modelCommit1Y),
		Reserved3YPrice: optional(prices, modelCommit3Y),
		Provider:        domain.ProviderGCP,
	}}, nil
}

// ListRegions returns the supported regions.
func (p *Provider) ListRegions(ctx context.Context) (domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copyCatalog(regions), nil
}

// ListResourceKinds returns the supported machine types.
func (p *Provider) ListResourceKinds(ctx context.Context) (domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copyCatalog(instanceTypes), nil
}

// Close releases idle connections.
func (p *Provider) Close() error {
	httpclient.CloseIdle(p.client)
	return nil
}

func (p *Provider) pageURL(resourceKind, region, pageToken string) string {
	query := url.Values{}
	query.Set("key", p.apiKey)
	query.Set("filter", fmt.Sprintf(`resource.machineType="%s" AND resource.region="%s"`, resourceKind, region))
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}
	return p.baseURL + "?" + query.Encode()
}

func optional(prices map[pricingModel]float64, model pricingModel) *float64 {
	if v, ok := prices[model]; ok {
		return domain.Price(v)
	}
	return nil
}
