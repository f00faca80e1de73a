package aws

import "time"

// Config contains AWS provider configuration.
//   - Live: query the Pricing and EC2 APIs instead of returning sample prices
//   - AccessKeyID/SecretAccessKey: static credentials; empty uses the default chain
//   - PricingRegion: endpoint region for the Pricing API
//   - Timeout: per-request HTTP timeout for the SDK clients
type Config struct {
	Live            bool          `env:"AWS_PRICING_LIVE"      envDefault:"false"`
	AccessKeyID     string        `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY"`
	PricingRegion   string        `env:"AWS_PRICING_REGION"    envDefault:"us-east-1"`
	Timeout         time.Duration `env:"AWS_TIMEOUT"           envDefault:"30s"`
	RateLimit       float64       `env:"AWS_RATE_LIMIT"        envDefault:"0"`
	RateBurst       int           `env:"AWS_RATE_BURST"        envDefault:"1"`
}
