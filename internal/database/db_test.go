package database

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConnectionStringProfiles(t *testing.T) {
	ledger := buildConnectionString("/data/portfolio.db", ProfileLedger)
	assert.Contains(t, ledger, "journal_mode(WAL)")
	assert.Contains(t, ledger, "synchronous(FULL)")
	assert.Contains(t, ledger, "auto_vacuum(NONE)")

	cache := buildConnectionString("/data/client_data.db", ProfileCache)
	assert.Contains(t, cache, "synchronous(OFF)")
	assert.Contains(t, cache, "auto_vacuum(FULL)")

	standard := buildConnectionString("/data/other.db", ProfileStandard)
	assert.Contains(t, standard, "synchronous(NORMAL)")
}

func TestNewAndMigrate(t *testing.T) {
	dir := t.TempDir()

	db, err := New(Config{
		Path:    filepath.Join(dir, "portfolio.db"),
		Profile: ProfileLedger,
		Name:    "portfolio",
	})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	// Migrations are idempotent.
	require.NoError(t, db.Migrate())

	for _, table := range []string{"holdings", "transactions", "snapshots"} {
		var name string
		err := db.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrateUnknownDatabaseIsNoop(t *testing.T) {
	dir := t.TempDir()

	db, err := New(Config{
		Path: filepath.Join(dir, "scratch.db"),
		Name: "scratch",
	})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestSchemaLookup(t *testing.T) {
	schema, ok := Schema("client_data")
	require.True(t, ok)
	assert.True(t, strings.Contains(schema, "fx_rates"))
	assert.True(t, strings.Contains(schema, "price_quotes"))

	_, ok = Schema("nope")
	assert.False(t, ok)
}
