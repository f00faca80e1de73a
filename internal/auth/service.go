// Package auth implements OAuth sign-in against AWS Cognito, Microsoft Entra
// ID and Google, with sessions kept in the shared cache store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/httpclient"
	"github.com/davidbz/cloudprice/internal/observability"
)

// Provider names accepted in the login and callback paths.
const (
	ProviderAWS    = "aws"
	ProviderAzure  = "azure"
	ProviderGoogle = "google"
)

// SessionCookie carries the session id.
const SessionCookie = "cloudprice_session"

const subscriptionsAPIVersion = "2020-01-01"

// ErrUnknownProvider is returned for a provider that is not configured.
var ErrUnknownProvider = errors.New("invalid provider")

// Option customizes a Service.
type Option func(*Service)

// WithEndpoint overrides the OAuth endpoint of one provider.
func WithEndpoint(provider string, endpoint oauth2.Endpoint) Option {
	return func(s *Service) {
		if conf, ok := s.providers[provider]; ok {
			conf.Endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the client used for token exchange and Azure calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.client = client
	}
}

// Service runs the OAuth login flows.
type Service struct {
	cfg       Config
	providers map[string]*oauth2.Config
	sessions  *SessionStore
	client    *http.Client
}

// NewService creates the OAuth service. Sessions live in cache.
func NewService(cfg Config, cache domain.CacheStore, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		providers: make(map[string]*oauth2.Config),
		sessions:  NewSessionStore(cache, cfg.SessionTTL),
		client:    httpclient.New(cfg.HTTPTimeout),
	}

	if cfg.CognitoDomain != "" && cfg.CognitoClientID != "" {
		domainURL := "https://" + strings.TrimSuffix(cfg.CognitoDomain, "/")
		s.providers[ProviderAWS] = &oauth2.Config{
			ClientID:     cfg.CognitoClientID,
			ClientSecret: cfg.CognitoSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  domainURL + "/oauth2/authorize",
				TokenURL: domainURL + "/oauth2/token",
			},
			RedirectURL: s.callbackURL(ProviderAWS),
			Scopes:      []string{"openid", "email", "profile"},
		}
	}

	if cfg.AzureClientID != "" {
		s.providers[ProviderAzure] = &oauth2.Config{
			ClientID:     cfg.AzureClientID,
			ClientSecret: cfg.AzureClientSecret,
			Endpoint:     microsoft.AzureADEndpoint("organizations"),
			RedirectURL:  s.callbackURL(ProviderAzure),
			Scopes:       []string{"openid", "email", "profile", "https://management.azure.com/user_impersonation"},
		}
	}

	if cfg.GoogleClientID != "" {
		s.providers[ProviderGoogle] = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  s.callbackURL(ProviderGoogle),
			Scopes:       []string{"openid", "email", "profile", "https://www.googleapis.com/auth/cloud-platform"},
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Providers returns the configured provider names, sorted.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleProviders lists the configured providers.
func (s *Service) HandleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string][]string{"providers": s.Providers()})
}

// HandleLogin redirects the browser to the provider's consent page.
func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := r.PathValue("provider")

	conf, ok := s.providers[provider]
	if !ok {
		http.Error(w, ErrUnknownProvider.Error(), http.StatusBadRequest)
		return
	}

	id, session := s.sessionFor(r)
	if session.States == nil {
		session.States = make(map[string]string)
	}
	state := uuid.NewString()
	session.States[provider] = state

	if !s.sessions.Save(ctx, id, session) {
		observability.FromContext(ctx).Error("failed to persist session")
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	s.setCookie(w, id)

	observability.FromContext(ctx).Info("starting OAuth login", observability.String("oauth_provider", provider))
	http.Redirect(w, r, conf.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback completes the code exchange and records the user.
func (s *Service) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := r.PathValue("provider")
	logger := observability.FromContext(ctx).With(observability.String("oauth_provider", provider))

	conf, ok := s.providers[provider]
	if !ok {
		http.Error(w, ErrUnknownProvider.Error(), http.StatusBadRequest)
		return
	}

	if err := s.completeLogin(ctx, r, provider, conf); err != nil {
		logger.Warn("OAuth callback failed", observability.Error(err))
		http.Redirect(w, r, s.cfg.FrontendURL+"/login?error="+url.QueryEscape(err.Error()), http.StatusFound)
		return
	}

	logger.Info("OAuth login completed")
	http.Redirect(w, r, s.cfg.FrontendURL+"/dashboard?provider="+url.QueryEscape(provider), http.StatusFound)
}

// HandleAzureSubscriptions lists subscriptions for the Azure-authenticated user.
func (s *Service) HandleAzureSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := s.currentSession(r)
	if !ok || session.AzureToken == "" {
		writeJSON(ctx, w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		return
	}

	subscriptions, err := s.fetchSubscriptions(ctx, session.AzureToken)
	if errors.Is(err, domain.ErrUnauthorized) {
		writeJSON(ctx, w, http.StatusUnauthorized, map[string]string{"detail": "Azure token rejected"})
		return
	}
	if err != nil {
		observability.FromContext(ctx).Warn("failed to list Azure subscriptions", observability.Error(err))
		writeJSON(ctx, w, http.StatusBadGateway, map[string]string{"detail": "Azure management API unavailable"})
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string][]Subscription{"subscriptions": subscriptions})
}

func (s *Service) completeLogin(ctx context.Context, r *http.Request, provider string, conf *oauth2.Config) error {
	query := r.URL.Query()
	if oauthErr := query.Get("error"); oauthErr != "" {
		return fmt.Errorf("provider returned error: %s", oauthErr)
	}

	id, session, ok := s.cookieSession(r)
	if !ok {
		return errors.New("session expired")
	}

	expected := session.States[provider]
	if expected == "" || query.Get("state") != expected {
		return errors.New("state mismatch")
	}
	delete(session.States, provider)

	code := query.Get("code")
	if code == "" {
		return errors.New("missing authorization code")
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := conf.Exchange(exchangeCtx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	claims, err := parseIDToken(rawIDToken)
	if err != nil {
		return err
	}

	session.User = &User{Email: claims.Email, Name: claims.Name, Provider: provider}

	if provider == ProviderAzure {
		session.AzureToken = token.AccessToken
		subscriptions, subErr := s.fetchSubscriptions(ctx, token.AccessToken)
		if subErr != nil {
			observability.FromContext(ctx).Warn("failed to list Azure subscriptions", observability.Error(subErr))
			subscriptions = []Subscription{}
		}
		session.AzureSubscriptions = subscriptions
	}

	if !s.sessions.Save(ctx, id, session) {
		return errors.New("session unavailable")
	}

	return nil
}

func (s *Service) fetchSubscriptions(ctx context.Context, token string) ([]Subscription, error) {
	endpoint := strings.TrimSuffix(s.cfg.AzureManagementURL, "/") +
		"/subscriptions?api-version=" + subscriptionsAPIVersion

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	var body struct {
		Value []Subscription `json:"value"`
	}
	if err := httpclient.GetJSON(ctx, s.client, endpoint, header, &body); err != nil {
		return nil, err
	}
	if body.Value == nil {
		return []Subscription{}, nil
	}
	return body.Value, nil
}

func (s *Service) callbackURL(provider string) string {
	return strings.TrimSuffix(s.cfg.PublicURL, "/") + "/api/v1/auth/auth/" + provider + "/callback"
}

// sessionFor returns the caller's session, or a new one with a fresh id.
func (s *Service) sessionFor(r *http.Request) (string, *Session) {
	if id, session, ok := s.cookieSession(r); ok {
		return id, session
	}
	return NewSessionID(), &Session{}
}

func (s *Service) currentSession(r *http.Request) (*Session, bool) {
	_, session, ok := s.cookieSession(r)
	return session, ok
}

func (s *Service) cookieSession(r *http.Request) (string, *Session, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", nil, false
	}
	session, ok := s.sessions.Load(r.Context(), cookie.Value)
	if !ok {
		return "", nil, false
	}
	return cookie.Value, session, true
}

func (s *Service) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	data, err := sonic.Marshal(body)
	if err != nil {
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
