package httpclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/httpclient"
)

type payload struct {
	Name string `json:"name"`
}

func TestGetJSON(t *testing.T) {
	t.Run("should decode a successful response and forward headers", func(t *testing.T) {
		var gotAuth, gotAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotAgent = r.Header.Get("User-Agent")
			_, _ = w.Write([]byte(`{"name":"eastus"}`))
		}))
		defer server.Close()

		var out payload
		header := http.Header{}
		header.Set("Authorization", "Bearer token")

		err := httpclient.GetJSON(context.Background(), httpclient.New(time.Second), server.URL, header, &out)
		require.NoError(t, err)
		require.Equal(t, "eastus", out.Name)
		require.Equal(t, "Bearer token", gotAuth)
		require.Equal(t, "cloudprice/1.0", gotAgent)
	})

	t.Run("should map auth rejection to ErrUnauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		var out payload
		err := httpclient.GetJSON(context.Background(), httpclient.New(time.Second), server.URL, nil, &out)
		require.Error(t, err)
		require.True(t, errors.Is(err, domain.ErrUnauthorized))
	})

	t.Run("should report other non-2xx statuses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}))
		defer server.Close()

		var out payload
		err := httpclient.GetJSON(context.Background(), httpclient.New(time.Second), server.URL, nil, &out)
		require.Error(t, err)
		require.True(t, errors.Is(err, httpclient.ErrUnexpectedStatus))
		require.Contains(t, err.Error(), "upstream down")
	})

	t.Run("should fail on malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		var out payload
		err := httpclient.GetJSON(context.Background(), httpclient.New(time.Second), server.URL, nil, &out)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to decode response")
	})

	t.Run("should fail when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var out payload
		err := httpclient.GetJSON(ctx, httpclient.New(time.Second), "http://127.0.0.1:1", nil, &out)
		require.Error(t, err)
	})
}
