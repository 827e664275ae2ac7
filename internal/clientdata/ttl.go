package clientdata

import "time"

// Default TTLs for cached provider data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLFxRate - USD_EUR moves slowly enough that hours-old rates are
	// acceptable for valuation purposes.
	TTLFxRate = 6 * time.Hour

	// TTLPriceQuote - equity prices move fast; keep this much shorter
	// than the FX TTL.
	TTLPriceQuote = 60 * time.Second
)
