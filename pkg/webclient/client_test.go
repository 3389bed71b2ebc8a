package webclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/pkg/observability"
)

func TestHTTPFetcher(t *testing.T) {
	t.Run("GET with JSON body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"title":"hello"}`))
		}))
		defer server.Close()

		f := NewHTTPFetcher(observability.NewNoopLogger())
		resp, err := f.Fetch(context.Background(), server.URL, RequestOptions{
			Headers: map[string]string{"Accept": "application/json"},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Status)
		assert.Equal(t, "OK", resp.StatusText)

		var decoded map[string]string
		require.NoError(t, resp.JSON(&decoded))
		assert.Equal(t, "hello", decoded["title"])
	})

	t.Run("Non-2xx is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		f := NewHTTPFetcher(observability.NewNoopLogger())
		resp, err := f.Fetch(context.Background(), server.URL, RequestOptions{})
		require.NoError(t, err)
		assert.Equal(t, 429, resp.Status)
	})

	t.Run("POST body reaches the server", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var payload map[string]string
			require.NoError(t, decodeJSON(r, &payload))
			assert.Equal(t, "mutation Register", payload["query"])
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		f := NewHTTPFetcher(observability.NewNoopLogger())
		_, err := f.Fetch(context.Background(), server.URL, RequestOptions{
			Method:  http.MethodPost,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    []byte(`{"query":"mutation Register"}`),
		})
		require.NoError(t, err)
	})

	t.Run("Timeout cancels the request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(500 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		f := NewHTTPFetcher(observability.NewNoopLogger())
		_, err := f.Fetch(context.Background(), server.URL, RequestOptions{
			Timeout: 20 * time.Millisecond,
		})
		assert.Error(t, err)
	})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
