// Package aws prices EC2 instances. Sample mode serves fixed prices; live mode
// reads on-demand and reserved terms from the AWS Pricing API and the latest
// spot price from EC2 spot price history.
package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/observability"
)

const (
	serviceCode       = "AmazonEC2"
	linuxSpotProduct  = "Linux/UNIX"
	maxPriceDocuments = 10
	maxSpotSamples    = 20
)

// PricingAPI is the subset of the Pricing client used by the adapter.
type PricingAPI interface {
	GetProducts(
		ctx context.Context,
		params *pricing.GetProductsInput,
		optFns ...func(*pricing.Options),
	) (*pricing.GetProductsOutput, error)
}

// SpotPriceAPI is the subset of the EC2 client used by the adapter.
type SpotPriceAPI interface {
	DescribeSpotPriceHistory(
		ctx context.Context,
		params *ec2.DescribeSpotPriceHistoryInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeSpotPriceHistoryOutput, error)
}

// Provider implements the domain.PriceProvider interface for AWS.
type Provider struct {
	pricing PricingAPI
	spot    SpotPriceAPI
	live    bool
	now     func() time.Time
}

// NewProvider creates a new AWS provider. Live mode loads SDK configuration
// from the environment, using static credentials when both keys are set.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if (config.AccessKeyID == "") != (config.SecretAccessKey == "") {
		return nil, errors.New("AWS access key id and secret access key must be set together")
	}

	if !config.Live {
		return &Provider{pricing: nil, spot: nil, live: false, now: time.Now}, nil
	}

	if config.PricingRegion == "" {
		return nil, errors.New("AWS pricing region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.PricingRegion),
	}
	if config.Timeout > 0 {
		opts = append(opts, awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(config.Timeout)))
	}
	if config.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewProviderWithClients(pricing.NewFromConfig(cfg), ec2.NewFromConfig(cfg)), nil
}

// NewProviderWithClients creates a live provider on top of existing clients.
func NewProviderWithClients(pricingClient PricingAPI, spotClient SpotPriceAPI) *Provider {
	return &Provider{
		pricing: pricingClient,
		spot:    spotClient,
		live:    true,
		now:     time.Now,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() domain.ProviderName {
	return domain.ProviderAWS
}

// FetchPrices returns at most one record for the instance type and region.
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
			Provider:        domain.ProviderAWS,
		}}, nil
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling AWS Pricing API")

	out, err := p.pricing.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: sdkaws.String(serviceCode),
		Filters: []pricingtypes.Filter{
			termMatch("instanceType", resourceKind),
			termMatch("regionCode", region),
			termMatch("operatingSystem", "Linux"),
			termMatch("tenancy", "Shared"),
			termMatch("preInstalledSw", "NA"),
			termMatch("capacitystatus", "Used"),
		},
		MaxResults: sdkaws.Int32(maxPriceDocuments),
	})
	if err != nil {
		logger.Error("AWS Pricing API call failed", observability.Error(err))
		return nil, fmt.Errorf("AWS Pricing API call failed: %w", err)
	}

	var prices parsedPrices
	for _, doc := range out.PriceList {
		parsed, parseErr := parsePriceList(doc)
		if parseErr != nil {
			logger.Debug("skipping malformed price list document", observability.Error(parseErr))
			continue
		}
		prices = mergePrices(prices, parsed)
	}

	if prices.onDemand == nil {
		logger.Debug("no on-demand price found",
			observability.Int("documents", len(out.PriceList)))
		return []domain.PriceRecord{}, nil
	}

	return []domain.PriceRecord{{
		ResourceKind:    resourceKind,
		Region:          region,
		OnDemandPrice:   *prices.onDemand,
		SpotPrice:       p.latestSpotPrice(ctx, resourceKind, region),
		Reserved1YPrice: prices.reserved1Y,
		Reserved3YPrice: prices.reserved3Y,
		Provider:        domain.ProviderAWS,
	}}, nil
}

// ListRegions returns the supported regions.
func (p *Provider) ListRegions(ctx context.Context) (domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copyCatalog(regions), nil
}

// ListResourceKinds returns the supported instance types.
func (p *Provider) ListResourceKinds(ctx context.Context) (domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copyCatalog(instanceTypes), nil
}

// Close is a no-op; the SDK clients hold no resources needing release.
func (p *Provider) Close() error {
	return nil
}

// latestSpotPrice returns nil when spot history is unavailable.
func (p *Provider) latestSpotPrice(ctx context.Context, resourceKind, region string) *float64 {
	if p.spot == nil {
		return nil
	}

	logger := observability.FromContext(ctx)

	out, err := p.spot.DescribeSpotPriceHistory(ctx, &ec2.DescribeSpotPriceHistoryInput{
		InstanceTypes:       []ec2types.InstanceType{ec2types.InstanceType(resourceKind)},
		ProductDescriptions: []string{linuxSpotProduct},
		StartTime:           sdkaws.Time(p.now()),
		MaxResults:          sdkaws.Int32(maxSpotSamples),
	}, func(o *ec2.Options) {
		o.Region = region
	})
	if err != nil {
		logger.Warn("spot price lookup failed", observability.Error(err))
		return nil
	}

	samples := make([]ec2types.SpotPrice, 0, len(out.SpotPriceHistory))
	for _, s := range out.SpotPriceHistory {
		if s.SpotPrice != nil && s.Timestamp != nil {
			samples = append(samples, s)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.After(*samples[j].Timestamp)
	})

	for _, s := range samples {
		price, parseErr := strconv.ParseFloat(*s.SpotPrice, 64)
		if parseErr != nil || price < 0 {
			logger.Debug("skipping malformed spot sample", observability.String("spot_price", *s.SpotPrice))
			continue
		}
		return &price
	}

	return nil
}

func termMatch(field, value string) pricingtypes.Filter {
	return pricingtypes.Filter{
		Type:  pricingtypes.FilterTypeTermMatch,
		Field: sdkaws.String(field),
		Value: sdkaws.String(value),
	}
}

// mergePrices keeps the first value found for each price slot.
func mergePrices(into, from parsedPrices) parsedPrices {
	if into.onDemand == nil {
		into.onDemand = from.onDemand
	}
	if into.reserved1Y == nil {
		into.reserved1Y = from.reserved1Y
	}
	if into.reserved3Y == nil {
		into.reserved3Y = from.reserved3Y
	}
	return into
}
