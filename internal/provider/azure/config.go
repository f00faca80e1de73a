package azure

import "time"

// Config contains Azure provider configuration.
type Config struct {
	Live      bool          `env:"AZURE_PRICING_LIVE" envDefault:"false"`
	BaseURL   string        `env:"AZURE_PRICING_URL"  envDefault:"https://prices.azure.com/api/retail/prices"`
	Timeout   time.Duration `env:"AZURE_TIMEOUT"      envDefault:"30s"`
	MaxPages  int           `env:"AZURE_MAX_PAGES"    envDefault:"10"`
	RateLimit float64       `env:"AZURE_RATE_LIMIT"   envDefault:"0"`
	RateBurst int           `env:"AZURE_RATE_BURST"   envDefault:"1"`
}
