package portfolio

import (
	"database/sql"
	"fmt"

	"github.com/aristath/folio/internal/domain"
)

// TransactionRepository persists the append-only trade log. Rows are
// only ever inserted.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// InsertTx appends a transaction inside an open transaction and fills
// in the generated row ID.
func (r *TransactionRepository) InsertTx(tx *sql.Tx, t *domain.Transaction) error {
	result, err := tx.Exec(`
		INSERT INTO transactions (reference, ts, type, symbol, market, quantity, price_eur, note, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Reference, t.Timestamp, t.Type, t.Symbol, t.Market, t.Quantity, t.PriceEUR, t.Note, t.Source)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction id: %w", err)
	}
	t.ID = id
	return nil
}

// List returns transactions newest first, optionally filtered by symbol.
// A limit of 0 means no limit.
func (r *TransactionRepository) List(symbol string, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT id, reference, ts, type, symbol, market, quantity, price_eur,
		       COALESCE(note, ''), COALESCE(source, '')
		FROM transactions`
	args := []interface{}{}
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY ts DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Reference, &t.Timestamp, &t.Type, &t.Symbol,
			&t.Market, &t.Quantity, &t.PriceEUR, &t.Note, &t.Source); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// Count returns the number of recorded transactions.
func (r *TransactionRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
