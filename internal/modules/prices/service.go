// Package prices resolves per-symbol market quotes with short-TTL
// caching and conversion into the settlement currency.
package prices

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// QuoteProvider fetches a raw last/close price for a symbol on a market.
// A zero timestamp means the provider did not supply one.
type QuoteProvider interface {
	Quote(symbol string, market domain.Market) (price float64, timestamp int64, err error)
}

// FxResolver supplies the USD->EUR rate for currency conversion.
type FxResolver interface {
	Rate() (float64, error)
}

// cachedQuote is the raw provider quote stored in the cache, always in
// the market's native currency. Conversion happens at read time so the
// FX rate is never frozen into the cache.
type cachedQuote struct {
	Symbol    string          `json:"symbol"`
	Market    domain.Market   `json:"market"`
	Price     float64         `json:"price"`
	Currency  domain.Currency `json:"currency"`
	FetchedAt int64           `json:"fetched_at"`
	Source    string          `json:"source"`
}

// Service resolves market quotes.
type Service struct {
	provider QuoteProvider
	fx       FxResolver
	cache    *clientdata.Repository
	source   string
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a new quote resolver.
func NewService(
	provider QuoteProvider,
	fx FxResolver,
	cache *clientdata.Repository,
	ttl time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		provider: provider,
		fx:       fx,
		cache:    cache,
		source:   "eodhd.com real-time",
		ttl:      ttl,
		log:      log.With().Str("service", "prices").Logger(),
		now:      time.Now,
	}
}

// GetPrice returns the quote for (symbol, market) converted to EUR.
// Freshness is judged from the fetch timestamp inside the cached
// payload. A cache hit still converts with a live FX rate and reports
// its source as "cache:<original-source>". Provider failures surface
// as domain.ErrQuoteUnavailable and are never cached.
func (s *Service) GetPrice(symbol string, market domain.Market) (domain.PriceQuote, error) {
	key := symbol + "." + market.Suffix()

	if cached, ok := s.fromCache(key); ok {
		quote, err := s.convert(cached, "cache:"+cached.Source)
		if err != nil {
			return domain.PriceQuote{}, err
		}
		s.log.Debug().Str("instrument", key).Float64("price", quote.Price).Msg("Cache hit")
		return quote, nil
	}

	price, ts, err := s.provider.Quote(symbol, market)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, err)
	}
	if !domain.ValidRate(price) {
		return domain.PriceQuote{}, fmt.Errorf("%w: provider returned unusable price %v", domain.ErrQuoteUnavailable, price)
	}
	if ts == 0 {
		ts = s.now().Unix()
	}

	raw := cachedQuote{
		Symbol:    symbol,
		Market:    market,
		Price:     price,
		Currency:  market.NativeCurrency(),
		FetchedAt: ts,
		Source:    s.source,
	}

	// Store the raw quote in its native currency, unconverted.
	if err := s.cache.Store(clientdata.TablePriceQuotes, key, raw, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("instrument", key).Msg("Failed to cache quote")
	}

	quote, err := s.convert(raw, raw.Source)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	s.log.Info().
		Str("instrument", key).
		Float64("price", quote.Price).
		Float64("price_eur", quote.PriceEUR).
		Msg("Fetched quote")

	return quote, nil
}

// fromCache reads the stored quote for key, treating malformed rows
// and stale fetch timestamps as absent.
func (s *Service) fromCache(key string) (cachedQuote, bool) {
	data, err := s.cache.Get(clientdata.TablePriceQuotes, key)
	if err != nil || data == nil {
		return cachedQuote{}, false
	}

	var cached cachedQuote
	if err := json.Unmarshal(data, &cached); err != nil {
		return cachedQuote{}, false
	}
	if !domain.ValidRate(cached.Price) {
		return cachedQuote{}, false
	}

	age := s.now().Unix() - cached.FetchedAt
	if age < 0 || age >= int64(s.ttl.Seconds()) {
		return cachedQuote{}, false
	}

	return cached, true
}

// convert builds the outgoing quote, converting USD prices to EUR with
// a live FX resolution.
func (s *Service) convert(raw cachedQuote, source string) (domain.PriceQuote, error) {
	quote := domain.PriceQuote{
		Symbol:    raw.Symbol,
		Market:    raw.Market,
		Price:     raw.Price,
		Currency:  raw.Currency,
		Source:    source,
		FetchedAt: raw.FetchedAt,
	}

	if raw.Currency == domain.CurrencyEUR {
		quote.PriceEUR = raw.Price
		return quote, nil
	}

	rate, err := s.fx.Rate()
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("fx conversion for %s: %w", raw.Symbol, err)
	}

	quote.PriceEUR = raw.Price * rate
	quote.FxUsed = &rate
	return quote, nil
}
