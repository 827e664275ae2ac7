package eodhd

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *Client {
	return NewClient(serverURL, "test-token", 2*time.Second, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AAPL.US", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("api_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"AAPL.US","timestamp":1700000000,"close":189.5,"previousClose":188.0}`))
	}))
	defer server.Close()

	price, ts, err := testClient(server.URL).Quote("AAPL", domain.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, 189.5, price)
	assert.Equal(t, int64(1700000000), ts)
}

func TestQuoteFallsBackToPreviousClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Outside trading hours EODHD sends "NA" for close
		_, _ = w.Write([]byte(`{"close":"NA","previousClose":188.0}`))
	}))
	defer server.Close()

	price, ts, err := testClient(server.URL).Quote("AAPL", domain.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, 188.0, price)
	assert.Equal(t, int64(0), ts)
}

func TestQuoteNoPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"close":"NA"}`))
	}))
	defer server.Close()

	_, _, err := testClient(server.URL).Quote("AAPL", domain.MarketUS)
	assert.Error(t, err)
}

func TestQuoteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, _, err := testClient(server.URL).Quote("AAPL", domain.MarketUS)
	assert.Error(t, err)
}

func TestQuoteEURUSD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/EURUSD.FOREX", r.URL.Path)
		_, _ = w.Write([]byte(`{"close":1.0870}`))
	}))
	defer server.Close()

	rate, err := testClient(server.URL).QuoteEURUSD()
	require.NoError(t, err)
	assert.Equal(t, 1.0870, rate)
}

func TestMissingToken(t *testing.T) {
	c := NewClient("http://unused", "", time.Second, zerolog.New(nil).Level(zerolog.Disabled))

	_, _, err := c.Quote("AAPL", domain.MarketUS)
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))

	_, err = c.QuoteEURUSD()
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
}
