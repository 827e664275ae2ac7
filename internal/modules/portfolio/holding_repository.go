// Package portfolio maintains the derived holdings and the append-only
// transaction log, and produces priced portfolio views.
package portfolio

import (
	"database/sql"
	"fmt"

	"github.com/aristath/folio/internal/domain"
)

// HoldingRepository persists the derived per-symbol positions.
type HoldingRepository struct {
	db *sql.DB
}

// NewHoldingRepository creates a new holding repository.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// List returns all holdings, including flat ones, ordered by symbol.
func (r *HoldingRepository) List() ([]domain.Holding, error) {
	rows, err := r.db.Query(`
		SELECT symbol, market, quantity, unit_cost_eur, updated_at
		FROM holdings ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.Symbol, &h.Market, &h.Quantity, &h.UnitCostEUR, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// Get returns the holding for a symbol, or nil if the symbol has never
// been traded.
func (r *HoldingRepository) Get(symbol string) (*domain.Holding, error) {
	return scanHolding(r.db.QueryRow(`
		SELECT symbol, market, quantity, unit_cost_eur, updated_at
		FROM holdings WHERE symbol = ?`, symbol))
}

// GetTx is Get inside an open transaction.
func (r *HoldingRepository) GetTx(tx *sql.Tx, symbol string) (*domain.Holding, error) {
	return scanHolding(tx.QueryRow(`
		SELECT symbol, market, quantity, unit_cost_eur, updated_at
		FROM holdings WHERE symbol = ?`, symbol))
}

// UpsertTx writes a holding inside an open transaction.
func (r *HoldingRepository) UpsertTx(tx *sql.Tx, h domain.Holding) error {
	_, err := tx.Exec(`
		INSERT INTO holdings (symbol, market, quantity, unit_cost_eur, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			market = excluded.market,
			quantity = excluded.quantity,
			unit_cost_eur = excluded.unit_cost_eur,
			updated_at = excluded.updated_at`,
		h.Symbol, h.Market, h.Quantity, h.UnitCostEUR, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.Symbol, err)
	}
	return nil
}

func scanHolding(row *sql.Row) (*domain.Holding, error) {
	var h domain.Holding
	err := row.Scan(&h.Symbol, &h.Market, &h.Quantity, &h.UnitCostEUR, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}
	return &h, nil
}
