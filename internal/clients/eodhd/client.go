// Package eodhd provides a client for the EODHD real-time quote API.
// It serves both equity quotes and the EURUSD forex quote used as the
// primary FX source.
package eodhd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// SymbolEURUSD is the EODHD forex symbol for EUR/USD (USD per 1 EUR).
const SymbolEURUSD = "EURUSD.FOREX"

// Client for eodhd.com real-time quotes
type Client struct {
	baseURL  string
	apiToken string
	client   *http.Client
	log      zerolog.Logger
}

// NewClient creates a new EODHD client. The timeout bounds every
// outbound call; a timed-out call is reported as a provider failure.
func NewClient(baseURL, apiToken string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		client:   &http.Client{Timeout: timeout},
		log:      log.With().Str("client", "eodhd").Logger(),
	}
}

// Quote fetches the real-time quote for a symbol on a market.
// Price is taken from "close", falling back to "previousClose".
// The returned timestamp is unix seconds, 0 when the provider omitted it.
func (c *Client) Quote(symbol string, market domain.Market) (price float64, timestamp int64, err error) {
	body, err := c.fetch(symbol + "." + market.Suffix())
	if err != nil {
		return 0, 0, err
	}

	price, ok := numberField(body, "close", "previousClose")
	if !ok {
		return 0, 0, fmt.Errorf("no usable price in response for %s.%s", symbol, market.Suffix())
	}

	if t, ok := numberField(body, "timestamp"); ok {
		timestamp = int64(t)
	}

	return price, timestamp, nil
}

// QuoteEURUSD fetches the EURUSD forex quote (USD per 1 EUR).
// Callers wanting USD->EUR must invert it.
func (c *Client) QuoteEURUSD() (float64, error) {
	body, err := c.fetch(SymbolEURUSD)
	if err != nil {
		return 0, err
	}

	// Defensive field order matches what EODHD has been observed to send.
	price, ok := numberField(body, "close", "price", "last")
	if !ok {
		return 0, fmt.Errorf("no usable EURUSD price in response")
	}

	return price, nil
}

// fetch performs the authenticated GET and decodes the JSON body.
func (c *Client) fetch(instrument string) (map[string]interface{}, error) {
	if c.apiToken == "" {
		return nil, domain.ErrMissingCredential
	}

	u := fmt.Sprintf("%s/%s?api_token=%s&fmt=json",
		c.baseURL, url.PathEscape(instrument), url.QueryEscape(c.apiToken))

	c.log.Debug().Str("instrument", instrument).Msg("Fetching quote")

	resp, err := c.client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return body, nil
}

// numberField returns the first of the named fields that holds a usable
// number. EODHD sends "NA" strings for missing values outside trading
// hours, so string-encoded numbers are accepted too.
func numberField(body map[string]interface{}, names ...string) (float64, bool) {
	for _, name := range names {
		v, ok := body[name]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
