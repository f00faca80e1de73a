package auth_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/davidbz/cloudprice/internal/auth"
	"github.com/davidbz/cloudprice/internal/cache/memory"
)

func fakeIDToken(t *testing.T, claims map[string]string) string {
	t.Helper()

	payload, err := sonic.Marshal(claims)
	require.NoError(t, err)

	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString(payload) + ".sig"
}

// newUpstream serves the token endpoint and the Azure management API.
func newUpstream(t *testing.T, idToken string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"azure-access","token_type":"Bearer","expires_in":3600,"id_token":"` +
			idToken + `"}`))
	})
	mux.HandleFunc("/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer azure-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"value":[{"subscriptionId":"sub-1","displayName":"Production","state":"Enabled"}]}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newService(t *testing.T, upstreamURL string) *auth.Service {
	t.Helper()

	cfg := auth.Config{
		FrontendURL:        "http://frontend.test",
		PublicURL:          "http://api.test",
		SessionTTL:         time.Hour,
		HTTPTimeout:        2 * time.Second,
		AzureManagementURL: upstreamURL,
		AzureClientID:      "azure-client",
		AzureClientSecret:  "azure-secret",
		GoogleClientID:     "google-client",
		GoogleClientSecret: "google-secret",
	}

	return auth.NewService(cfg, memory.NewStore(),
		auth.WithEndpoint(auth.ProviderAzure, oauth2.Endpoint{
			AuthURL:  upstreamURL + "/authorize",
			TokenURL: upstreamURL + "/token",
		}),
	)
}

func login(t *testing.T, service *auth.Service, provider string) (*http.Cookie, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login/"+provider, nil)
	req.SetPathValue("provider", provider)
	rec := httptest.NewRecorder()

	service.HandleLogin(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, auth.SessionCookie, cookies[0].Name)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	return cookies[0], location.Query().Get("state")
}

func callback(service *auth.Service, provider string, cookie *http.Cookie, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/auth/"+provider+"/callback?"+query, nil)
	req.SetPathValue("provider", provider)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	service.HandleCallback(rec, req)
	return rec
}

func TestService_Providers(t *testing.T) {
	t.Run("should offer only configured providers", func(t *testing.T) {
		service := newService(t, "http://unused.test")
		require.Equal(t, []string{"azure", "google"}, service.Providers())
	})

	t.Run("should offer aws when cognito is configured", func(t *testing.T) {
		service := auth.NewService(auth.Config{
			SessionTTL:      time.Hour,
			CognitoDomain:   "example.auth.us-east-1.amazoncognito.com",
			CognitoClientID: "cognito-client",
		}, memory.NewStore())
		require.Equal(t, []string{"aws"}, service.Providers())
	})
}

func TestService_HandleLogin(t *testing.T) {
	t.Run("should reject unknown provider", func(t *testing.T) {
		service := newService(t, "http://unused.test")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login/oracle", nil)
		req.SetPathValue("provider", "oracle")
		rec := httptest.NewRecorder()

		service.HandleLogin(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should redirect to consent page with state", func(t *testing.T) {
		upstream := newUpstream(t, "")
		service := newService(t, upstream.URL)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login/azure", nil)
		req.SetPathValue("provider", "azure")
		rec := httptest.NewRecorder()

		service.HandleLogin(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/authorize", location.Path)
		require.NotEmpty(t, location.Query().Get("state"))
		require.Equal(t, "azure-client", location.Query().Get("client_id"))
		require.Equal(t, "http://api.test/api/v1/auth/auth/azure/callback", location.Query().Get("redirect_uri"))
	})
}

func TestService_HandleCallback(t *testing.T) {
	t.Run("should complete azure login and expose subscriptions", func(t *testing.T) {
		idToken := fakeIDToken(t, map[string]string{"preferred_username": "dev@example.com", "name": "Dev"})
		upstream := newUpstream(t, idToken)
		service := newService(t, upstream.URL)

		cookie, state := login(t, service, auth.ProviderAzure)

		rec := callback(service, auth.ProviderAzure, cookie, "code=abc&state="+url.QueryEscape(state))
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "http://frontend.test/dashboard?provider=azure", rec.Header().Get("Location"))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/azure/subscriptions", nil)
		req.AddCookie(cookie)
		subs := httptest.NewRecorder()
		service.HandleAzureSubscriptions(subs, req)

		require.Equal(t, http.StatusOK, subs.Code)
		var body struct {
			Subscriptions []auth.Subscription `json:"subscriptions"`
		}
		require.NoError(t, sonic.Unmarshal(subs.Body.Bytes(), &body))
		require.Len(t, body.Subscriptions, 1)
		require.Equal(t, "sub-1", body.Subscriptions[0].SubscriptionID)
	})

	t.Run("should redirect with error on state mismatch", func(t *testing.T) {
		upstream := newUpstream(t, fakeIDToken(t, map[string]string{"email": "a@b.c"}))
		service := newService(t, upstream.URL)

		cookie, _ := login(t, service, auth.ProviderAzure)

		rec := callback(service, auth.ProviderAzure, cookie, "code=abc&state=forged")
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "http://frontend.test/login?error=state+mismatch", rec.Header().Get("Location"))
	})

	t.Run("should redirect with error without a session", func(t *testing.T) {
		service := newService(t, "http://unused.test")

		rec := callback(service, auth.ProviderGoogle, nil, "code=abc&state=x")
		require.Equal(t, http.StatusFound, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "/login?error=session+expired")
	})

	t.Run("should redirect with error when id_token is missing", func(t *testing.T) {
		upstream := newUpstream(t, "")
		service := newService(t, upstream.URL)

		cookie, state := login(t, service, auth.ProviderAzure)

		rec := callback(service, auth.ProviderAzure, cookie, "code=abc&state="+url.QueryEscape(state))
		require.Equal(t, http.StatusFound, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "http://frontend.test/login?error=")
	})
}

func TestService_HandleAzureSubscriptions(t *testing.T) {
	t.Run("should return 401 without an azure session", func(t *testing.T) {
		service := newService(t, "http://unused.test")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/azure/subscriptions", nil)
		rec := httptest.NewRecorder()
		service.HandleAzureSubscriptions(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSessionStore(t *testing.T) {
	t.Run("should round-trip a session through the cache", func(t *testing.T) {
		store := auth.NewSessionStore(memory.NewStore(), time.Hour)
		ctx := context.Background()
		id := auth.NewSessionID()

		require.True(t, store.Save(ctx, id, &auth.Session{
			User: &auth.User{Email: "a@b.c", Name: "A", Provider: "google"},
		}))

		session, ok := store.Load(ctx, id)
		require.True(t, ok)
		require.Equal(t, "a@b.c", session.User.Email)

		require.True(t, store.Delete(ctx, id))
		_, ok = store.Load(ctx, id)
		require.False(t, ok)
	})
}
