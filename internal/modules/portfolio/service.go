package portfolio

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuoteSource resolves the current EUR price for a position.
type QuoteSource interface {
	GetPrice(symbol string, market domain.Market) (domain.PriceQuote, error)
}

// TransactionRequest is an incoming trade to record.
type TransactionRequest struct {
	Type      domain.TxType `json:"type"`
	Symbol    string        `json:"symbol"`
	Market    domain.Market `json:"market"`
	Quantity  float64       `json:"quantity"`
	PriceEUR  float64       `json:"price_eur"`
	Timestamp int64         `json:"timestamp,omitempty"`
	Note      string        `json:"note,omitempty"`
	Source    string        `json:"source,omitempty"`
}

// Position is one holding row in a portfolio view, optionally priced.
type Position struct {
	domain.Holding
	CostBasisEUR   float64  `json:"cost_basis_eur"`
	PriceEUR       *float64 `json:"price_eur,omitempty"`
	MarketValueEUR *float64 `json:"market_value_eur,omitempty"`
	PnLEUR         *float64 `json:"pnl_eur,omitempty"`
	PnLPct         *float64 `json:"pnl_pct,omitempty"`
}

// Totals aggregates a portfolio view. Priced fields are nil when the
// view was built without quotes.
type Totals struct {
	CostBasisEUR   float64  `json:"invested_cost_eur"`
	MarketValueEUR *float64 `json:"current_value_eur,omitempty"`
	PnLEUR         *float64 `json:"unrealized_pnl_eur,omitempty"`
	PnLPct         *float64 `json:"unrealized_pnl_pct,omitempty"`
	Currency       string   `json:"currency"`
}

// View is the full portfolio state returned to clients.
type View struct {
	Positions []Position `json:"positions"`
	Totals    Totals     `json:"totals"`
	Priced    bool       `json:"priced"`
}

// Service owns trade recording and portfolio valuation. Trade
// application is serialized per symbol so the holdings mutation and
// the log append commit together.
type Service struct {
	db       *sql.DB
	holdings *HoldingRepository
	txLog    *TransactionRepository
	quotes   QuoteSource
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new portfolio service.
func NewService(
	db *sql.DB,
	holdings *HoldingRepository,
	txLog *TransactionRepository,
	quotes QuoteSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:       db,
		holdings: holdings,
		txLog:    txLog,
		quotes:   quotes,
		log:      log.With().Str("service", "portfolio").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// symbolLock returns the mutex serializing trades for one symbol.
func (s *Service) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[symbol] = lock
	}
	return lock
}

// ApplyTransaction validates a trade against the current position,
// updates the holding, and appends to the transaction log, all inside
// one database transaction. On validation failure nothing is written.
func (s *Service) ApplyTransaction(req TransactionRequest) (*domain.Transaction, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	lock := s.symbolLock(req.Symbol)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.holdings.GetTx(tx, req.Symbol)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	updated, err := applyTrade(current, req, now)
	if err != nil {
		return nil, err
	}

	if err := s.holdings.UpsertTx(tx, updated); err != nil {
		return nil, err
	}

	ts := req.Timestamp
	if ts == 0 {
		ts = now
	}
	recorded := &domain.Transaction{
		Reference: uuid.New().String(),
		Timestamp: ts,
		Type:      req.Type,
		Symbol:    req.Symbol,
		Market:    req.Market,
		Quantity:  req.Quantity,
		PriceEUR:  req.PriceEUR,
		Note:      req.Note,
		Source:    req.Source,
	}
	if err := s.txLog.InsertTx(tx, recorded); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit trade: %w", err)
	}

	s.log.Info().
		Str("type", string(req.Type)).
		Str("symbol", req.Symbol).
		Float64("quantity", req.Quantity).
		Float64("price_eur", req.PriceEUR).
		Msg("Recorded transaction")

	return recorded, nil
}

func validateRequest(req TransactionRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if _, err := domain.ParseMarket(string(req.Market)); err != nil {
		return err
	}
	if req.Type != domain.TxBuy && req.Type != domain.TxSell {
		return fmt.Errorf("unknown transaction type: %q", req.Type)
	}
	if req.Quantity <= 0 || domain.QuantityIsZero(req.Quantity) {
		return fmt.Errorf("quantity must be positive, got %v", req.Quantity)
	}
	if !domain.ValidRate(req.PriceEUR) {
		return fmt.Errorf("price_eur must be positive and finite, got %v", req.PriceEUR)
	}
	return nil
}

// applyTrade computes the post-trade holding. Buys move the
// quantity-weighted average cost; sells never do. A sell that empties
// the position resets its cost basis to zero.
func applyTrade(current *domain.Holding, req TransactionRequest, now int64) (domain.Holding, error) {
	if current == nil {
		if req.Type == domain.TxSell {
			return domain.Holding{}, fmt.Errorf("%w: no position in %s", domain.ErrInvalidSell, req.Symbol)
		}
		return domain.Holding{
			Symbol:      req.Symbol,
			Market:      req.Market,
			Quantity:    req.Quantity,
			UnitCostEUR: req.PriceEUR,
			UpdatedAt:   now,
		}, nil
	}

	updated := *current
	updated.UpdatedAt = now

	switch req.Type {
	case domain.TxBuy:
		newQty := current.Quantity + req.Quantity
		if domain.QuantityIsZero(current.Quantity) {
			// Reopening a flat position starts a fresh cost basis.
			updated.UnitCostEUR = req.PriceEUR
		} else {
			updated.UnitCostEUR = (current.Quantity*current.UnitCostEUR + req.Quantity*req.PriceEUR) / newQty
		}
		updated.Quantity = newQty

	case domain.TxSell:
		if domain.QuantityIsZero(current.Quantity) {
			return domain.Holding{}, fmt.Errorf("%w: position in %s is flat", domain.ErrInvalidSell, req.Symbol)
		}
		remaining := current.Quantity - req.Quantity
		if domain.QuantityIsNegative(remaining) {
			return domain.Holding{}, fmt.Errorf("%w: have %v, tried to sell %v",
				domain.ErrInsufficientQuantity, current.Quantity, req.Quantity)
		}
		if domain.QuantityIsZero(remaining) {
			updated.Quantity = 0
			updated.UnitCostEUR = 0
		} else {
			updated.Quantity = remaining
		}
	}

	return updated, nil
}

// ListTransactions returns the trade log newest first.
func (s *Service) ListTransactions(symbol string, limit int) ([]domain.Transaction, error) {
	return s.txLog.List(symbol, limit)
}

// GetView builds the portfolio view. With withPrices set, every open
// position is quoted; a single quote failure fails the whole view so a
// partially priced portfolio is never reported.
func (s *Service) GetView(withPrices bool) (*View, error) {
	holdings, err := s.holdings.List()
	if err != nil {
		return nil, err
	}

	view := &View{Positions: make([]Position, 0, len(holdings)), Priced: withPrices}
	view.Totals.Currency = string(domain.CurrencyEUR)
	var totalValue float64

	for _, h := range holdings {
		pos := Position{Holding: h, CostBasisEUR: h.Quantity * h.UnitCostEUR}
		view.Totals.CostBasisEUR += pos.CostBasisEUR

		if withPrices && !domain.QuantityIsZero(h.Quantity) {
			quote, err := s.quotes.GetPrice(h.Symbol, h.Market)
			if err != nil {
				return nil, fmt.Errorf("pricing %s: %w", h.Symbol, err)
			}
			value := h.Quantity * quote.PriceEUR
			pnl := value - pos.CostBasisEUR
			pos.PriceEUR = &quote.PriceEUR
			pos.MarketValueEUR = &value
			pos.PnLEUR = &pnl
			if pos.CostBasisEUR > 0 {
				pct := pnl / pos.CostBasisEUR * 100
				pos.PnLPct = &pct
			}
			totalValue += value
		}

		view.Positions = append(view.Positions, pos)
	}

	if withPrices {
		view.Totals.MarketValueEUR = &totalValue
		pnl := totalValue - view.Totals.CostBasisEUR
		view.Totals.PnLEUR = &pnl
		if view.Totals.CostBasisEUR > 0 {
			pct := pnl / view.Totals.CostBasisEUR * 100
			view.Totals.PnLPct = &pct
		}
	}

	return view, nil
}

// MarketValue returns the current EUR value of all open positions,
// failing fast on any quote error.
func (s *Service) MarketValue() (float64, error) {
	holdings, err := s.holdings.List()
	if err != nil {
		return 0, err
	}

	var total float64
	for _, h := range holdings {
		if domain.QuantityIsZero(h.Quantity) {
			continue
		}
		quote, err := s.quotes.GetPrice(h.Symbol, h.Market)
		if err != nil {
			return 0, fmt.Errorf("pricing %s: %w", h.Symbol, err)
		}
		total += h.Quantity * quote.PriceEUR
	}
	return total, nil
}

// MarketValueOf returns the current EUR value of one position. A
// symbol that was never traded or is flat values at zero.
func (s *Service) MarketValueOf(symbol string) (float64, error) {
	holding, err := s.holdings.Get(symbol)
	if err != nil {
		return 0, err
	}
	if holding == nil || domain.QuantityIsZero(holding.Quantity) {
		return 0, nil
	}
	quote, err := s.quotes.GetPrice(holding.Symbol, holding.Market)
	if err != nil {
		return 0, fmt.Errorf("pricing %s: %w", holding.Symbol, err)
	}
	return holding.Quantity * quote.PriceEUR, nil
}
