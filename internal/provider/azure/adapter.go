// Package azure prices Azure virtual machines from the public Retail Prices API.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/httpclient"
	"github.com/davidbz/cloudprice/internal/observability"
)

const defaultMaxPages = 10

// Provider implements the domain.PriceProvider interface for Azure.
type Provider struct {
	client   *http.Client
	baseURL  string
	maxPages int
	live     bool
}

// NewProvider creates a new Azure provider.
func NewProvider(config Config) (*Provider, error) {
	if config.Live {
		if config.BaseURL == "" {
			return nil, errors.New("Azure pricing URL is required")
		}
		if _, err := url.ParseRequestURI(config.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid Azure pricing URL: %w", err)
		}
	}

	maxPages := config.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &Provider{
		client:   httpclient.New(config.Timeout),
		baseURL:  config.BaseURL,
		maxPages: maxPages,
		live:     config.Live,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() domain.ProviderName {
	return domain.ProviderAzure
}

// FetchPrices returns at most one record for the VM size and region.
func (p *Provider) FetchPrices(ctx context.Context, resourceKind, region string) ([]domain.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !p.live {
		return []domain.PriceRecord{{
			ResourceKind:    resourceKind,
			Region:          region,
			OnDemandPrice:   sampleOnDemand,
			SpotPrice:       domain.Price(sampleSpot),
			Reserved1YPrice: domain.Price(sampleReserved1Y),
			Reserved3YPrice: domain.Price(sampleReserved3Y),
			Provider:        domain.ProviderAzure,
		}}, nil
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling Azure Retail Prices API")

	var slots priceSlots
	next := p.firstPageURL(resourceKind, region)
	pages := 0
	for next != "" && pages < p.maxPages {
		var page retailPage
		if err := httpclient.GetJSON(ctx, p.client, next, nil, &page); err != nil {
			logger.Error("Azure Retail Prices API call failed", observability.Error(err))
			return nil, fmt.Errorf("Azure Retail Prices API call failed: %w", err)
		}
		pages++

		for _, raw := range page.Items {
			item, err := decodeItem(raw)
			if err != nil {
				logger.Debug("skipping malformed retail price item", observability.Error(err))
				continue
			}
			if !strings.EqualFold(item.ArmSkuName, resourceKind) {
				continue
			}
			if !slots.add(item) {
				logger.Debug("skipping retail price item",
					observability.String("product", item.ProductName),
					observability.String("type", item.Type))
			}
		}
		next = page.NextPageLink
	}

	if next != "" {
		logger.Warn("Azure page cap reached, results may be partial",
			observability.Int("pages", pages))
	}

	if slots.onDemand == nil {
		logger.Debug("no on-demand price found", observability.Int("pages", pages))
		return []domain.PriceRecord{}, nil
	}

	return []domain.PriceRecord{{
		ResourceKind:    resourceKind,
		Region:          region,
		OnDemandPrice:   *slots.onDemand,
		SpotPrice:       slots.spot,
		Reserved1YPrice: slots.reserved1Y,
		Reserved3YPrice: slots.reserved3Y,
		Provider:        domain.ProviderAzure,
	}}, nil
}

// ListRegions returns the supported regions.
func (p *Provider) ListRegions(ctx context.Context) (domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copyCatalog(regions), nil
}

// ListResourceKinds returns the supported VM sizes.
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

func (p *Provider) firstPageURL(resourceKind, region string) string {
	filter := fmt.Sprintf(
		"serviceName eq 'Virtual Machines' and armRegionName eq '%s' and armSkuName eq '%s'",
		escapeODataString(region), escapeODataString(resourceKind),
	)
	query := url.Values{}
	query.Set("$filter", filter)
	return p.baseURL + "?" + query.Encode()
}

func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
