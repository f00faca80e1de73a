package gcp

import "time"

// Config contains GCP provider configuration. Live lookups are enabled by
// setting APIKey.
type Config struct {
	APIKey    string        `env:"GCP_API_KEY"`
	BaseURL   string        `env:"GCP_BILLING_URL" envDefault:"https://cloudbilling.googleapis.com/v1/services/6F81-5844-456A/skus"`
	Timeout   time.Duration `env:"GCP_TIMEOUT"     envDefault:"30s"`
	MaxPages  int           `env:"GCP_MAX_PAGES"   envDefault:"10"`
	RateLimit float64       `env:"GCP_RATE_LIMIT"  envDefault:"0"`
	RateBurst int           `env:"GCP_RATE_BURST"  envDefault:"1"`
}
