package database

// schemas maps database names to their schema DDL. Each schema is the
// single source of truth for that database's structure.
var schemas = map[string]string{
	"portfolio":   portfolioSchema,
	"client_data": clientDataSchema,
}

// portfolioSchema holds the durable ledger state: derived holdings,
// the append-only transaction log, and the append-only snapshot log.
const portfolioSchema = `
CREATE TABLE IF NOT EXISTS holdings (
    symbol        TEXT PRIMARY KEY,
    market        TEXT NOT NULL,
    quantity      REAL NOT NULL,
    unit_cost_eur REAL NOT NULL,
    updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    reference TEXT NOT NULL,
    ts        INTEGER NOT NULL,
    type      TEXT NOT NULL,
    symbol    TEXT NOT NULL,
    market    TEXT NOT NULL,
    quantity  REAL NOT NULL,
    price_eur REAL NOT NULL,
    note      TEXT,
    source    TEXT
);
CREATE INDEX IF NOT EXISTS idx_transactions_ts ON transactions(ts);
CREATE INDEX IF NOT EXISTS idx_transactions_symbol ON transactions(symbol);

CREATE TABLE IF NOT EXISTS snapshots (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    ts        INTEGER NOT NULL,
    scope     TEXT NOT NULL,
    symbol    TEXT,
    value_eur REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_scope_ts ON snapshots(scope, ts);
`

// clientDataSchema holds ephemeral cached provider responses as JSON
// blobs with expiration timestamps.
const clientDataSchema = `
CREATE TABLE IF NOT EXISTS fx_rates (
    pair       TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fx_rates_expires ON fx_rates(expires_at);

CREATE TABLE IF NOT EXISTS price_quotes (
    instrument TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_quotes_expires ON price_quotes(expires_at);
`

// Schema returns the DDL for a named database. Exposed for tests that
// build in-memory databases.
func Schema(name string) (string, bool) {
	s, ok := schemas[name]
	return s, ok
}
