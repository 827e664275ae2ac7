// Package domain holds the core types shared across modules.
// It has no infrastructure dependencies.
package domain

import (
	"fmt"
	"strings"
)

// Market identifies the exchange a security trades on.
type Market string

const (
	MarketUS    Market = "US"
	MarketXETRA Market = "XETRA"
)

// ParseMarket normalizes and validates a market string.
func ParseMarket(s string) (Market, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "US":
		return MarketUS, nil
	case "XETRA":
		return MarketXETRA, nil
	default:
		return "", fmt.Errorf("unknown market: %q", s)
	}
}

// NativeCurrency returns the currency quotes on this market are priced in.
func (m Market) NativeCurrency() Currency {
	if m == MarketUS {
		return CurrencyUSD
	}
	return CurrencyEUR
}

// Suffix returns the EODHD symbol suffix for this market.
func (m Market) Suffix() string {
	return string(m)
}

// Currency is a quote currency code.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// TxType is the direction of a recorded transaction.
type TxType string

const (
	TxBuy  TxType = "buy"
	TxSell TxType = "sell"
)

// ParseTxType normalizes and validates a transaction type string.
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return TxBuy, nil
	case "sell":
		return TxSell, nil
	default:
		return "", fmt.Errorf("unknown transaction type: %q", s)
	}
}

// Scope is the snapshot cadence bucket used to pick a comparison baseline.
type Scope string

const (
	ScopeDaily   Scope = "daily"
	ScopeWeekly  Scope = "weekly"
	ScopeMonthly Scope = "monthly"
)

// ParseScope normalizes and validates a snapshot scope string.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return ScopeDaily, nil
	case "weekly":
		return ScopeWeekly, nil
	case "monthly":
		return ScopeMonthly, nil
	default:
		return "", fmt.Errorf("unknown snapshot scope: %q", s)
	}
}

// Holding is the derived per-symbol position. Quantity is always >= 0
// and UnitCostEUR is the quantity-weighted average acquisition cost,
// reset to 0 when the position goes flat. Rows are never deleted.
type Holding struct {
	Symbol      string  `json:"symbol"`
	Market      Market  `json:"market"`
	Quantity    float64 `json:"quantity"`
	UnitCostEUR float64 `json:"unit_cost_eur"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Transaction is one immutable entry in the append-only trade log.
type Transaction struct {
	ID        int64   `json:"id"`
	Reference string  `json:"reference"`
	Timestamp int64   `json:"timestamp"`
	Type      TxType  `json:"type"`
	Symbol    string  `json:"symbol"`
	Market    Market  `json:"market"`
	Quantity  float64 `json:"quantity"`
	PriceEUR  float64 `json:"price_eur"`
	Note      string  `json:"note,omitempty"`
	Source    string  `json:"source,omitempty"`
}

// FxRate is a resolved USD->EUR rate with provenance.
type FxRate struct {
	Pair      string  `json:"pair"`
	Rate      float64 `json:"rate"`
	Source    string  `json:"source"`
	FetchedAt int64   `json:"fetched_at"`
	TTLSec    int64   `json:"ttl_sec"`
}

// PriceQuote is a resolved market quote converted to the settlement currency.
// FxUsed is nil when no conversion was needed.
type PriceQuote struct {
	Symbol    string   `json:"symbol"`
	Market    Market   `json:"market"`
	Price     float64  `json:"price"`
	Currency  Currency `json:"currency"`
	PriceEUR  float64  `json:"price_eur"`
	FxUsed    *float64 `json:"fx_used"`
	Source    string   `json:"source"`
	FetchedAt int64    `json:"fetched_at"`
}

// Snapshot is one append-only valuation record. Symbol is empty for
// whole-portfolio snapshots.
type Snapshot struct {
	ID        int64   `json:"id"`
	Timestamp int64   `json:"timestamp"`
	Scope     Scope   `json:"scope"`
	Symbol    string  `json:"symbol,omitempty"`
	ValueEUR  float64 `json:"value_eur"`
}

// Comparison is the result of comparing the current portfolio value
// against the latest snapshot for a scope. Pointer fields are nil when
// no baseline exists (or, for ChangePct, when the baseline is zero).
type Comparison struct {
	Scope       Scope    `json:"scope"`
	Symbol      string   `json:"symbol,omitempty"`
	BaselineTS  *int64   `json:"baseline_ts"`
	CurrentTS   int64    `json:"current_ts"`
	BaselineEUR *float64 `json:"baseline_value_eur"`
	CurrentEUR  float64  `json:"current_value_eur"`
	ChangeAbs   *float64 `json:"change_abs"`
	ChangePct   *float64 `json:"change_pct"`
	Note        string   `json:"note,omitempty"`
}
