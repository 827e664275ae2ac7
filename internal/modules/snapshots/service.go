package snapshots

import (
	"fmt"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Valuer computes live EUR portfolio values.
type Valuer interface {
	MarketValue() (float64, error)
	MarketValueOf(symbol string) (float64, error)
}

// HistorySummary describes the stored snapshot series for one
// (scope, symbol) pair.
type HistorySummary struct {
	Scope    domain.Scope `json:"scope"`
	Symbol   string       `json:"symbol,omitempty"`
	Count    int          `json:"count"`
	MeanEUR  float64      `json:"mean_eur"`
	StdDev   float64      `json:"stddev_eur"`
	MinEUR   float64      `json:"min_eur"`
	MaxEUR   float64      `json:"max_eur"`
	FirstTS  int64        `json:"first_ts"`
	LatestTS int64        `json:"latest_ts"`
}

// Service owns snapshot capture and baseline comparison.
type Service struct {
	repo   *Repository
	valuer Valuer
	log    zerolog.Logger
	now    func() time.Time
}

// NewService creates a new snapshot service.
func NewService(repo *Repository, valuer Valuer, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		valuer: valuer,
		log:    log.With().Str("service", "snapshots").Logger(),
		now:    time.Now,
	}
}

// CurrentValue returns the live EUR value, of the whole portfolio when
// symbol is empty or of one position otherwise. Any quote failure
// fails the whole call.
func (s *Service) CurrentValue(symbol string) (float64, error) {
	if symbol == "" {
		return s.valuer.MarketValue()
	}
	return s.valuer.MarketValueOf(symbol)
}

// SnapshotNow values the portfolio and appends a snapshot. Repeated
// calls within a scope produce separate rows; nothing is deduplicated.
func (s *Service) SnapshotNow(scope domain.Scope, symbol string) (*domain.Snapshot, error) {
	value, err := s.CurrentValue(symbol)
	if err != nil {
		return nil, fmt.Errorf("valuing for %s snapshot: %w", scope, err)
	}

	snap := &domain.Snapshot{
		Timestamp: s.now().Unix(),
		Scope:     scope,
		Symbol:    symbol,
		ValueEUR:  value,
	}
	if err := s.repo.Save(snap); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("scope", string(scope)).
		Str("symbol", symbol).
		Float64("value_eur", value).
		Msg("Captured snapshot")

	return snap, nil
}

// Compare values the portfolio now and compares against the latest
// snapshot for (scope, symbol). With no stored baseline the comparison
// carries nil baseline fields and an explanatory note. ChangePct is
// nil when the baseline value is zero.
func (s *Service) Compare(scope domain.Scope, symbol string) (*domain.Comparison, error) {
	current, err := s.CurrentValue(symbol)
	if err != nil {
		return nil, fmt.Errorf("valuing for %s comparison: %w", scope, err)
	}

	cmp := &domain.Comparison{
		Scope:      scope,
		Symbol:     symbol,
		CurrentTS:  s.now().Unix(),
		CurrentEUR: current,
	}

	baseline, err := s.repo.Latest(scope, symbol)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		cmp.Note = fmt.Sprintf("no %s snapshot recorded yet", scope)
		return cmp, nil
	}

	change := current - baseline.ValueEUR
	cmp.BaselineTS = &baseline.Timestamp
	cmp.BaselineEUR = &baseline.ValueEUR
	cmp.ChangeAbs = &change
	if baseline.ValueEUR != 0 {
		pct := change / baseline.ValueEUR * 100
		cmp.ChangePct = &pct
	}
	return cmp, nil
}

// History summarizes the stored snapshot series for (scope, symbol).
func (s *Service) History(scope domain.Scope, symbol string) (*HistorySummary, error) {
	snaps, err := s.repo.List(scope, symbol)
	if err != nil {
		return nil, err
	}

	summary := &HistorySummary{Scope: scope, Symbol: symbol, Count: len(snaps)}
	if len(snaps) == 0 {
		return summary, nil
	}

	values := make([]float64, len(snaps))
	summary.MinEUR = snaps[0].ValueEUR
	summary.MaxEUR = snaps[0].ValueEUR
	for i, snap := range snaps {
		values[i] = snap.ValueEUR
		if snap.ValueEUR < summary.MinEUR {
			summary.MinEUR = snap.ValueEUR
		}
		if snap.ValueEUR > summary.MaxEUR {
			summary.MaxEUR = snap.ValueEUR
		}
	}

	summary.MeanEUR = stat.Mean(values, nil)
	if len(values) > 1 {
		summary.StdDev = stat.StdDev(values, nil)
	}
	summary.FirstTS = snaps[0].Timestamp
	summary.LatestTS = snaps[len(snaps)-1].Timestamp
	return summary, nil
}
