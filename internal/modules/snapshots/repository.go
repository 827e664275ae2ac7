// Package snapshots records append-only portfolio valuations and
// compares the live portfolio against them.
package snapshots

import (
	"database/sql"
	"fmt"

	"github.com/aristath/folio/internal/domain"
)

// Repository persists valuation snapshots. The table is append-only;
// nothing updates or deletes rows.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new snapshot repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save appends a snapshot and fills in the generated row ID.
func (r *Repository) Save(s *domain.Snapshot) error {
	var symbol interface{}
	if s.Symbol != "" {
		symbol = s.Symbol
	}
	result, err := r.db.Exec(`
		INSERT INTO snapshots (ts, scope, symbol, value_eur)
		VALUES (?, ?, ?, ?)`,
		s.Timestamp, s.Scope, symbol, s.ValueEUR)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get snapshot id: %w", err)
	}
	s.ID = id
	return nil
}

// Latest returns the most recent snapshot for (scope, symbol), or nil
// when none exists. An empty symbol selects whole-portfolio snapshots.
func (r *Repository) Latest(scope domain.Scope, symbol string) (*domain.Snapshot, error) {
	row := r.db.QueryRow(`
		SELECT id, ts, scope, COALESCE(symbol, ''), value_eur
		FROM snapshots
		WHERE scope = ? AND COALESCE(symbol, '') = ?
		ORDER BY ts DESC, id DESC LIMIT 1`,
		scope, symbol)

	var s domain.Snapshot
	err := row.Scan(&s.ID, &s.Timestamp, &s.Scope, &s.Symbol, &s.ValueEUR)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	return &s, nil
}

// List returns all snapshots for (scope, symbol) oldest first.
func (r *Repository) List(scope domain.Scope, symbol string) ([]domain.Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, ts, scope, COALESCE(symbol, ''), value_eur
		FROM snapshots
		WHERE scope = ? AND COALESCE(symbol, '') = ?
		ORDER BY ts ASC, id ASC`,
		scope, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.Scope, &s.Symbol, &s.ValueEUR); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
