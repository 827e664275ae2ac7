// Package fx resolves the USD->EUR exchange rate with caching and
// multi-provider fallback.
package fx

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// PairUSDEUR is the only pair the resolver serves: EUR per 1 USD.
const PairUSDEUR = "USD_EUR"

// PrimaryProvider quotes EUR priced in USD (USD per 1 EUR).
// The resolver inverts it to get USD->EUR.
type PrimaryProvider interface {
	QuoteEURUSD() (float64, error)
}

// SecondaryProvider returns the target-currency rate directly.
type SecondaryProvider interface {
	GetRate(fromCurrency, toCurrency string) (float64, error)
}

// Service resolves and caches the USD->EUR rate.
type Service struct {
	primary       PrimaryProvider
	secondary     SecondaryProvider
	cache         *clientdata.Repository
	primarySource string
	ttl           time.Duration
	log           zerolog.Logger
}

// NewService creates a new FX resolver.
func NewService(
	primary PrimaryProvider,
	secondary SecondaryProvider,
	cache *clientdata.Repository,
	ttl time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		primary:       primary,
		secondary:     secondary,
		cache:         cache,
		primarySource: "eodhd.com real-time",
		ttl:           ttl,
		log:           log.With().Str("service", "fx").Logger(),
	}
}

// Resolve returns the USD->EUR rate, serving from cache unless force
// is set or the cached entry has expired. On a fetch, the primary
// provider is tried first and the secondary on any primary failure;
// when both fail the call fails with domain.ErrUpstreamUnavailable and
// nothing is cached.
func (s *Service) Resolve(force bool) (domain.FxRate, error) {
	if !force {
		if cached, ok := s.fromCache(); ok {
			s.log.Debug().Float64("rate", cached.Rate).Str("source", cached.Source).Msg("Cache hit")
			return cached, nil
		}
	}

	rate, source, err := s.fetch()
	if err != nil {
		return domain.FxRate{}, err
	}

	payload := domain.FxRate{
		Pair:      PairUSDEUR,
		Rate:      rate,
		Source:    source,
		FetchedAt: time.Now().Unix(),
		TTLSec:    int64(s.ttl.Seconds()),
	}

	if err := s.cache.Store(clientdata.TableFxRates, PairUSDEUR, payload, s.ttl); err != nil {
		// A failed cache write is not a failed resolution.
		s.log.Warn().Err(err).Msg("Failed to cache fx rate")
	}

	s.log.Info().Float64("rate", rate).Str("source", source).Msg("Resolved USD_EUR")
	return payload, nil
}

// Rate is a convenience wrapper returning just the numeric rate.
func (s *Service) Rate() (float64, error) {
	resolved, err := s.Resolve(false)
	if err != nil {
		return 0, err
	}
	return resolved.Rate, nil
}

// fromCache reads the cached payload, treating malformed rows as absent.
func (s *Service) fromCache() (domain.FxRate, bool) {
	data, err := s.cache.GetIfFresh(clientdata.TableFxRates, PairUSDEUR)
	if err != nil || data == nil {
		return domain.FxRate{}, false
	}

	var cached domain.FxRate
	if err := json.Unmarshal(data, &cached); err != nil {
		return domain.FxRate{}, false
	}
	if !domain.ValidRate(cached.Rate) {
		return domain.FxRate{}, false
	}

	return cached, true
}

// fetch tries the primary provider and falls back to the secondary.
// Validation failures count as provider failures, not faults.
func (s *Service) fetch() (float64, string, error) {
	eurusd, primaryErr := s.primary.QuoteEURUSD()
	if primaryErr == nil && !domain.ValidRate(eurusd) {
		primaryErr = fmt.Errorf("primary returned unusable rate %v", eurusd)
	}
	if primaryErr == nil {
		// Primary quotes USD per 1 EUR; invert for USD->EUR.
		return 1.0 / eurusd, s.primarySource, nil
	}

	s.log.Warn().Err(primaryErr).Msg("Primary fx provider failed, trying fallback")

	rate, secondaryErr := s.secondary.GetRate("USD", "EUR")
	if secondaryErr == nil && !domain.ValidRate(rate) {
		secondaryErr = fmt.Errorf("secondary returned unusable rate %v", rate)
	}
	if secondaryErr == nil {
		return rate, "exchangerate-api.com", nil
	}

	s.log.Error().
		AnErr("primary", primaryErr).
		AnErr("secondary", secondaryErr).
		Msg("All fx providers failed")

	return 0, "", fmt.Errorf("%w: primary: %v; secondary: %v",
		domain.ErrUpstreamUnavailable, primaryErr, secondaryErr)
}
