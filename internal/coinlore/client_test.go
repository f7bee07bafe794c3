package coinlore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", 5*time.Second)
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("GetCatalogSize reads coins_count", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/global/", r.URL.Path)
			w.Write([]byte(`[{"coins_count": 12345, "active_markets": 9}]`))
		})

		n, err := client.GetCatalogSize(ctx)
		require.NoError(t, err)
		assert.Equal(t, 12345, n)
	})

	t.Run("GetCatalogSize fails on empty list", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		})

		_, err := client.GetCatalogSize(ctx)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("GetTickersPage sends start and limit", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/tickers/", r.URL.Path)
			assert.Equal(t, "200", r.URL.Query().Get("start"))
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			w.Write([]byte(`{"data":[{"id":"90","symbol":"BTC","name":"Bitcoin","price_usd":"34000.50"}],"info":{"coins_num":1}}`))
		})

		tickers, err := client.GetTickersPage(ctx, 200, 100)
		require.NoError(t, err)
		require.Len(t, tickers, 1)
		assert.Equal(t, "90", tickers[0].ID)
		assert.Equal(t, "BTC", tickers[0].Symbol)
		assert.Equal(t, "34000.50", tickers[0].PriceUSD)
	})

	t.Run("GetTickersByIDs joins ids", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/ticker/", r.URL.Path)
			assert.Equal(t, "90,80", r.URL.Query().Get("id"))
			w.Write([]byte(`[{"id":"90","symbol":"BTC","price_usd":"1"},{"id":"80","symbol":"ETH","price_usd":"2"}]`))
		})

		tickers, err := client.GetTickersByIDs(ctx, []string{"90", "80"})
		require.NoError(t, err)
		assert.Len(t, tickers, 2)
	})

	t.Run("GetTickersByIDs with no ids skips the request", func(t *testing.T) {
		called := false
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		tickers, err := client.GetTickersByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, tickers)
		assert.False(t, called)
	})

	t.Run("error status is upstream unavailable", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.GetTickersPage(ctx, 0, 100)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("malformed body is upstream unavailable", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>rate limited</html>`))
		})

		_, err := client.GetTickersByIDs(ctx, []string{"1"})
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("transport failure is upstream unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		client := NewClient(url, time.Second)
		_, err := client.GetCatalogSize(ctx)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})
}
