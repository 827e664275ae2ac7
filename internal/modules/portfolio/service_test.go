package portfolio

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockQuotes struct {
	prices map[string]float64
	err    error
}

func (m *mockQuotes) GetPrice(symbol string, market domain.Market) (domain.PriceQuote, error) {
	if m.err != nil {
		return domain.PriceQuote{}, m.err
	}
	price, ok := m.prices[symbol]
	if !ok {
		return domain.PriceQuote{}, domain.ErrQuoteUnavailable
	}
	return domain.PriceQuote{Symbol: symbol, Market: market, PriceEUR: price}, nil
}

func setupService(t *testing.T, quotes QuoteSource) (*Service, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every pooled connection to :memory: would get its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, ok := database.Schema("portfolio")
	require.True(t, ok)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	svc := NewService(db, NewHoldingRepository(db), NewTransactionRepository(db), quotes, log)
	return svc, db
}

func buy(symbol string, qty, price float64) TransactionRequest {
	return TransactionRequest{Type: domain.TxBuy, Symbol: symbol, Market: domain.MarketUS, Quantity: qty, PriceEUR: price}
}

func sell(symbol string, qty, price float64) TransactionRequest {
	return TransactionRequest{Type: domain.TxSell, Symbol: symbol, Market: domain.MarketUS, Quantity: qty, PriceEUR: price}
}

func TestApplyTransactionFirstBuy(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{})

	recorded, err := svc.ApplyTransaction(buy("AAPL", 10, 100))
	require.NoError(t, err)
	assert.NotZero(t, recorded.ID)
	assert.NotEmpty(t, recorded.Reference)

	h, err := svc.holdings.Get("AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, 10.0, h.Quantity)
	assert.Equal(t, 100.0, h.UnitCostEUR)
}

func TestApplyTransactionWeightedAverageCost(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{})

	_, err := svc.ApplyTransaction(buy("AAPL", 10, 100))
	require.NoError(t, err)
	_, err = svc.ApplyTransaction(buy("AAPL", 10, 200))
	require.NoError(t, err)

	h, err := svc.holdings.Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 20.0, h.Quantity)
	assert.InDelta(t, 150.0, h.UnitCostEUR, 1e-9)
}

func TestApplyTransactionSellKeepsCost(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{})

	_, err := svc.ApplyTransaction(buy("AAPL", 10, 100))
	require.NoError(t, err)
	_, err = svc.ApplyTransaction(sell("AAPL", 4, 150))
	require.NoError(t, err)

	h, err := svc.holdings.Get("AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 6.0, h.Quantity, 1e-9)
	assert.Equal(t, 100.0, h.UnitCostEUR, "selling must not move the average cost")
}

func TestApplyTransactionSellToZeroResetsCost(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{})

	_, err := svc.ApplyTransaction(buy("AAPL", 3, 100))
	require.NoError(t, err)
	// 0.1+0.1+0.1 style residue must still count as flat
	_, err = svc.ApplyTransaction(sell("AAPL", 3.0000000001, 150))
	require.NoError(t, err)

	h, err := svc.holdings.Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0.0, h.Quantity)
	assert.Equal(t, 0.0, h.UnitCostEUR)
}

func TestApplyTransactionReopenAfterFlat(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{})

	_, err := svc.ApplyTransaction(buy("AAPL", 5, 100))
	require.NoError(t, err)
	_, err = svc.ApplyTransaction(sell("AAPL", 5, 150))
	require.NoError(t, err)
	_, err = svc.ApplyTransaction(buy("AAPL", 2, 300))
	require.NoError(t, err)

	h, err := svc.holdings.Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2.0, h.Quantity)
	assert.Equal(t, 300.0, h.UnitCostEUR, "old cost basis must not bleed into the reopened position")
}

func TestApplyTransactionSellWithoutPosition(t *testing.T) {
	svc, db := setupService(t, &mockQuotes{})

	_, err := svc.ApplyTransaction(sell("AAPL", 1, 100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidSell))

	// Rejected trades leave no trace in the log.
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestApplyTransactionOversell(t *testing.T) {
	svc, db := setupService(t, &mockQuotes{})

	_, err := svc.ApplyTransaction(buy("AAPL", 10, 100))
	require.NoError(t, err)

	_, err = svc.ApplyTransaction(sell("AAPL", 11, 100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientQuantity))

	// Holding untouched, log has only the buy.
	h, err := svc.holdings.Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10.0, h.Quantity)
	assert.Equal(t, 100.0, h.UnitCostEUR)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestApplyTransactionValidation(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{})

	cases := []TransactionRequest{
		{Type: domain.TxBuy, Symbol: "", Market: domain.MarketUS, Quantity: 1, PriceEUR: 100},
		{Type: domain.TxBuy, Symbol: "AAPL", Market: "LSE", Quantity: 1, PriceEUR: 100},
		{Type: "short", Symbol: "AAPL", Market: domain.MarketUS, Quantity: 1, PriceEUR: 100},
		{Type: domain.TxBuy, Symbol: "AAPL", Market: domain.MarketUS, Quantity: 0, PriceEUR: 100},
		{Type: domain.TxBuy, Symbol: "AAPL", Market: domain.MarketUS, Quantity: -2, PriceEUR: 100},
		{Type: domain.TxBuy, Symbol: "AAPL", Market: domain.MarketUS, Quantity: 1, PriceEUR: 0},
		{Type: domain.TxBuy, Symbol: "AAPL", Market: domain.MarketUS, Quantity: 1, PriceEUR: -5},
	}
	for _, req := range cases {
		_, err := svc.ApplyTransaction(req)
		assert.Error(t, err, "request %+v should be rejected", req)
	}
}

func TestApplyTransactionConcurrentBuys(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{})

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyTransaction(buy("AAPL", 1, 100))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	h, err := svc.holdings.Get("AAPL")
	require.NoError(t, err)
	assert.InDelta(t, float64(workers), h.Quantity, 1e-9)

	count, err := svc.txLog.Count()
	require.NoError(t, err)
	assert.Equal(t, workers, count)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{})

	_, err := svc.ApplyTransaction(buy("AAPL", 1, 100))
	require.NoError(t, err)
	_, err = svc.ApplyTransaction(buy("SAP", 2, 50))
	require.NoError(t, err)

	all, err := svc.ListTransactions("", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	onlyAAPL, err := svc.ListTransactions("AAPL", 0)
	require.NoError(t, err)
	require.Len(t, onlyAAPL, 1)
	assert.Equal(t, "AAPL", onlyAAPL[0].Symbol)
}

func TestGetViewUnpriced(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{err: errors.New("should not be called")})

	_, err := svc.ApplyTransaction(buy("AAPL", 10, 100))
	require.NoError(t, err)

	view, err := svc.GetView(false)
	require.NoError(t, err)
	assert.False(t, view.Priced)
	require.Len(t, view.Positions, 1)
	assert.Equal(t, 1000.0, view.Totals.CostBasisEUR)
	assert.Nil(t, view.Totals.MarketValueEUR)
	assert.Nil(t, view.Positions[0].PriceEUR)
}

func TestGetViewPriced(t *testing.T) {
	quotes := &mockQuotes{prices: map[string]float64{"AAPL": 120, "SAP": 40}}
	svc, _ := setupService(t, quotes)

	_, err := svc.ApplyTransaction(buy("AAPL", 10, 100))
	require.NoError(t, err)
	_, err = svc.ApplyTransaction(buy("SAP", 5, 50))
	require.NoError(t, err)

	view, err := svc.GetView(true)
	require.NoError(t, err)
	require.Len(t, view.Positions, 2)

	require.NotNil(t, view.Totals.MarketValueEUR)
	assert.InDelta(t, 10*120+5*40.0, *view.Totals.MarketValueEUR, 1e-9)
	require.NotNil(t, view.Totals.PnLEUR)
	assert.InDelta(t, 1400-1250.0, *view.Totals.PnLEUR, 1e-9)
	require.NotNil(t, view.Totals.PnLPct)
	assert.InDelta(t, 150.0/1250*100, *view.Totals.PnLPct, 1e-9)
}

func TestGetViewFailsFastOnQuoteError(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{err: domain.ErrQuoteUnavailable})

	_, err := svc.ApplyTransaction(buy("AAPL", 10, 100))
	require.NoError(t, err)

	_, err = svc.GetView(true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
}

func TestGetViewSkipsPricingFlatPositions(t *testing.T) {
	// Quote source errors on any call; a flat position must not be quoted.
	svc, _ := setupService(t, &mockQuotes{err: domain.ErrQuoteUnavailable})

	_, err := svc.ApplyTransaction(buy("AAPL", 5, 100))
	require.NoError(t, err)
	_, err = svc.ApplyTransaction(sell("AAPL", 5, 120))
	require.NoError(t, err)

	view, err := svc.GetView(true)
	require.NoError(t, err)
	require.Len(t, view.Positions, 1)
	assert.Equal(t, 0.0, view.Positions[0].Quantity)
}

func TestMarketValue(t *testing.T) {
	quotes := &mockQuotes{prices: map[string]float64{"AAPL": 120}}
	svc, _ := setupService(t, quotes)

	_, err := svc.ApplyTransaction(buy("AAPL", 10, 100))
	require.NoError(t, err)

	total, err := svc.MarketValue()
	require.NoError(t, err)
	assert.InDelta(t, 1200.0, total, 1e-9)
}

func TestMarketValueOfUnknownSymbol(t *testing.T) {
	svc, _ := setupService(t, &mockQuotes{err: domain.ErrQuoteUnavailable})

	value, err := svc.MarketValueOf("NVDA")
	require.NoError(t, err)
	assert.Equal(t, 0.0, value)
}
