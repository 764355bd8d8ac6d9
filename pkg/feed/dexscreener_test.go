package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const twoPairs = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "dexId": "uniswap",
      "url": "https://dexscreener.com/ethereum/0xpair1",
      "pairAddress": "0xpair1",
      "baseToken": {"address": "0xABC", "name": "Pepe", "symbol": "PEPE"},
      "priceUsd": "0.000012345",
      "priceChange": {"m5": 0.1, "h1": 15.5, "h6": 3, "h24": -4.25}
    },
    {
      "dexId": "sushiswap",
      "pairAddress": "0xpair2",
      "baseToken": {"address": "0xABC", "name": "Pepe", "symbol": "PEPE"},
      "priceUsd": "0.2",
      "priceChange": {"h1": 1, "h24": 2}
    }
  ]
}`

func newServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, &path
}

func TestDexScreener_FetchPrice(t *testing.T) {
	server, path := newServer(t, http.StatusOK, twoPairs)
	client := NewDexScreener(WithBaseURL(server.URL+"/latest/dex/tokens/"), WithHTTPClient(server.Client()))

	snapshot, err := client.FetchPrice(context.Background(), "0xABC")
	require.NoError(t, err)
	require.Equal(t, "/latest/dex/tokens/0xABC", *path)

	require.True(t, snapshot.Price.Equal(decimal.RequireFromString("0.000012345")))
	require.Equal(t, 15.5, snapshot.Change1h)
	require.Equal(t, -4.25, snapshot.Change24h)
	require.Equal(t, "PEPE", snapshot.Symbol)
	require.Equal(t, "Pepe", snapshot.Name)
	require.Equal(t, "0xpair1", snapshot.PairAddress)
	require.Equal(t, "uniswap", snapshot.DexID)
}

func TestDexScreener_NumericFields(t *testing.T) {
	body := `{"pairs":[{"priceUsd":1.5,"priceChange":{"h1":"-2.5","h24":"10"},"baseToken":{"name":"T","symbol":"T"}}]}`
	server, _ := newServer(t, http.StatusOK, body)
	client := NewDexScreener(WithBaseURL(server.URL))

	snapshot, err := client.FetchPrice(context.Background(), "0x1")
	require.NoError(t, err)
	require.True(t, snapshot.Price.Equal(decimal.RequireFromString("1.5")))
	require.Equal(t, -2.5, snapshot.Change1h)
	require.Equal(t, 10.0, snapshot.Change24h)
}

func TestDexScreener_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: twoPairs},
		{name: "not found", status: http.StatusNotFound, body: `{}`},
		{name: "null pairs", status: http.StatusOK, body: `{"schemaVersion":"1.0.0","pairs":null}`},
		{name: "empty pairs", status: http.StatusOK, body: `{"pairs":[]}`},
		{name: "missing pairs", status: http.StatusOK, body: `{"schemaVersion":"1.0.0"}`},
		{name: "invalid json", status: http.StatusOK, body: `{"pairs":[`},
		{name: "bad price", status: http.StatusOK, body: `{"pairs":[{"priceUsd":"n/a","priceChange":{"h1":1,"h24":1}}]}`},
		{name: "missing change", status: http.StatusOK, body: `{"pairs":[{"priceUsd":"1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newServer(t, tt.status, tt.body)
			client := NewDexScreener(WithBaseURL(server.URL))

			_, err := client.FetchPrice(context.Background(), "0xABC")
			require.ErrorIs(t, err, core.ErrNotFound)
		})
	}
}

func TestDexScreener_TransportError(t *testing.T) {
	server, _ := newServer(t, http.StatusOK, twoPairs)
	server.Close()

	client := NewDexScreener(WithBaseURL(server.URL))
	_, err := client.FetchPrice(context.Background(), "0xABC")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDexScreener_Cancelled(t *testing.T) {
	server, _ := newServer(t, http.StatusOK, twoPairs)
	client := NewDexScreener(WithBaseURL(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPrice(ctx, "0xABC")
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, core.ErrNotFound)
}

func TestDexScreener_EmptyAddress(t *testing.T) {
	client := NewDexScreener()
	_, err := client.FetchPrice(context.Background(), " ")
	require.ErrorIs(t, err, core.ErrNotFound)
	require.ErrorIs(t, err, core.ErrEmptyAddress)
}
