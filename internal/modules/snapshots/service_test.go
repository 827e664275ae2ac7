package snapshots

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockValuer struct {
	total     float64
	perSymbol map[string]float64
	err       error
}

func (m *mockValuer) MarketValue() (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.total, nil
}

func (m *mockValuer) MarketValueOf(symbol string) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.perSymbol[symbol], nil
}

func setupService(t *testing.T, valuer Valuer) *Service {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, ok := database.Schema("portfolio")
	require.True(t, ok)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	return NewService(NewRepository(db), valuer, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestCompareWithoutBaseline(t *testing.T) {
	svc := setupService(t, &mockValuer{total: 1500})

	cmp, err := svc.Compare(domain.ScopeDaily, "")
	require.NoError(t, err)

	assert.Nil(t, cmp.BaselineTS)
	assert.Nil(t, cmp.BaselineEUR)
	assert.Nil(t, cmp.ChangeAbs)
	assert.Nil(t, cmp.ChangePct)
	assert.Equal(t, 1500.0, cmp.CurrentEUR)
	assert.NotEmpty(t, cmp.Note)
}

func TestSnapshotThenCompare(t *testing.T) {
	valuer := &mockValuer{total: 1000}
	svc := setupService(t, valuer)

	snap, err := svc.SnapshotNow(domain.ScopeDaily, "")
	require.NoError(t, err)
	assert.NotZero(t, snap.ID)
	assert.Equal(t, 1000.0, snap.ValueEUR)

	valuer.total = 1100
	cmp, err := svc.Compare(domain.ScopeDaily, "")
	require.NoError(t, err)

	require.NotNil(t, cmp.BaselineEUR)
	assert.Equal(t, 1000.0, *cmp.BaselineEUR)
	require.NotNil(t, cmp.ChangeAbs)
	assert.InDelta(t, 100.0, *cmp.ChangeAbs, 1e-9)
	require.NotNil(t, cmp.ChangePct)
	assert.InDelta(t, 10.0, *cmp.ChangePct, 1e-9)
	assert.Empty(t, cmp.Note)
}

func TestCompareZeroBaselineHasNilPct(t *testing.T) {
	valuer := &mockValuer{total: 0}
	svc := setupService(t, valuer)

	_, err := svc.SnapshotNow(domain.ScopeDaily, "")
	require.NoError(t, err)

	valuer.total = 500
	cmp, err := svc.Compare(domain.ScopeDaily, "")
	require.NoError(t, err)

	require.NotNil(t, cmp.ChangeAbs)
	assert.Equal(t, 500.0, *cmp.ChangeAbs)
	assert.Nil(t, cmp.ChangePct, "percent change is undefined against a zero baseline")
}

func TestCompareScopesAreIndependent(t *testing.T) {
	valuer := &mockValuer{total: 1000}
	svc := setupService(t, valuer)

	_, err := svc.SnapshotNow(domain.ScopeDaily, "")
	require.NoError(t, err)

	cmp, err := svc.Compare(domain.ScopeWeekly, "")
	require.NoError(t, err)
	assert.Nil(t, cmp.BaselineEUR, "a daily snapshot must not serve as a weekly baseline")
}

func TestComparePerSymbol(t *testing.T) {
	valuer := &mockValuer{perSymbol: map[string]float64{"AAPL": 900}}
	svc := setupService(t, valuer)

	_, err := svc.SnapshotNow(domain.ScopeDaily, "AAPL")
	require.NoError(t, err)

	valuer.perSymbol["AAPL"] = 990
	cmp, err := svc.Compare(domain.ScopeDaily, "AAPL")
	require.NoError(t, err)

	require.NotNil(t, cmp.BaselineEUR)
	assert.Equal(t, 900.0, *cmp.BaselineEUR)
	assert.Equal(t, "AAPL", cmp.Symbol)

	// Whole-portfolio comparison does not see the symbol baseline.
	whole, err := svc.Compare(domain.ScopeDaily, "")
	require.NoError(t, err)
	assert.Nil(t, whole.BaselineEUR)
}

func TestSnapshotAppendsNeverOverwrites(t *testing.T) {
	valuer := &mockValuer{total: 1000}
	svc := setupService(t, valuer)

	first, err := svc.SnapshotNow(domain.ScopeDaily, "")
	require.NoError(t, err)
	valuer.total = 1200
	second, err := svc.SnapshotNow(domain.ScopeDaily, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	snaps, err := svc.repo.List(domain.ScopeDaily, "")
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	// Latest must pick the newest row.
	latest, err := svc.repo.Latest(domain.ScopeDaily, "")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, latest.ValueEUR)
}

func TestSnapshotNowValuationFailure(t *testing.T) {
	svc := setupService(t, &mockValuer{err: domain.ErrQuoteUnavailable})

	_, err := svc.SnapshotNow(domain.ScopeDaily, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))

	snaps, err := svc.repo.List(domain.ScopeDaily, "")
	require.NoError(t, err)
	assert.Empty(t, snaps, "failed valuations must not be recorded")
}

func TestHistorySummary(t *testing.T) {
	valuer := &mockValuer{total: 100}
	svc := setupService(t, valuer)

	for _, v := range []float64{100, 200, 300} {
		valuer.total = v
		_, err := svc.SnapshotNow(domain.ScopeDaily, "")
		require.NoError(t, err)
	}

	summary, err := svc.History(domain.ScopeDaily, "")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Count)
	assert.InDelta(t, 200.0, summary.MeanEUR, 1e-9)
	assert.InDelta(t, 100.0, summary.StdDev, 1e-9)
	assert.Equal(t, 100.0, summary.MinEUR)
	assert.Equal(t, 300.0, summary.MaxEUR)
}

func TestHistorySummaryEmpty(t *testing.T) {
	svc := setupService(t, &mockValuer{})

	summary, err := svc.History(domain.ScopeMonthly, "")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)
	assert.Equal(t, 0.0, summary.MeanEUR)
}

func TestJobRun(t *testing.T) {
	valuer := &mockValuer{total: 750}
	svc := setupService(t, valuer)
	job := NewJob(svc, domain.ScopeWeekly, zerolog.New(nil).Level(zerolog.Disabled))

	assert.Equal(t, "snapshot_weekly", job.Name())
	require.NoError(t, job.Run())

	latest, err := svc.repo.Latest(domain.ScopeWeekly, "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 750.0, latest.ValueEUR)
	assert.WithinDuration(t, time.Now(), time.Unix(latest.Timestamp, 0), 5*time.Second)
}
