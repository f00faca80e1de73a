package auth

import "time"

// Config contains OAuth client credentials and session settings.
// A provider is offered only when its client id is set.
type Config struct {
	FrontendURL        string        `env:"FRONTEND_URL"              envDefault:"http://localhost:3000"`
	PublicURL          string        `env:"PUBLIC_URL"                envDefault:"http://localhost:8080"`
	SessionTTL         time.Duration `env:"SESSION_TTL"               envDefault:"1h"`
	CookieSecure       bool          `env:"SESSION_COOKIE_SECURE"     envDefault:"false"`
	HTTPTimeout        time.Duration `env:"OAUTH_HTTP_TIMEOUT"        envDefault:"15s"`
	AzureManagementURL string        `env:"AZURE_MANAGEMENT_URL"      envDefault:"https://management.azure.com"`
	CognitoDomain      string        `env:"AWS_COGNITO_DOMAIN"`
	CognitoClientID    string        `env:"AWS_COGNITO_CLIENT_ID"`
	CognitoSecret      string        `env:"AWS_COGNITO_CLIENT_SECRET"`
	AzureClientID      string        `env:"AZURE_CLIENT_ID"`
	AzureClientSecret  string        `env:"AZURE_CLIENT_SECRET"`
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
}
