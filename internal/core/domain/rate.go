package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateEntry is one observed exchange rate for an ordered currency pair,
// attributed to the source that reported it.
type RateEntry struct {
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	Source           string          `json:"source"`
	ObservedAt       time.Time       `json:"observedAt"`
}

// RateSnapshot is the fully merged view of all pairs observed in one
// refresh cycle. Every entry shares the cycle's RefreshedAt timestamp.
// Snapshots are replaced wholesale, never patched.
type RateSnapshot struct {
	Pairs       map[string]RateEntry `json:"pairs"` // keyed "FROM_TO"
	RefreshedAt time.Time            `json:"refreshedAt"`
}

// RateHistoryRecord is one append-only audit row, written per observed
// pair per refresh cycle.
type RateHistoryRecord struct {
	ID               string          `json:"id"`
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	Source           string          `json:"source"`
	ObservedAt       time.Time       `json:"observedAt"`
}

// SourceStatus reports the outcome of a single source within a refresh cycle.
type SourceStatus struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// RefreshResult summarizes one refresh cycle. Success means at least one
// pair was merged and the snapshot was committed.
type RefreshResult struct {
	Success   bool                    `json:"success"`
	Count     int                     `json:"ratesCount"`
	Sources   map[string]SourceStatus `json:"sources"`
	Timestamp time.Time               `json:"timestamp"`
	Error     string                  `json:"error,omitempty"`
}

// PairKey builds the canonical "FROM_TO" key for an ordered currency pair.
func PairKey(from, to string) string {
	return from + "_" + to
}

// SplitPairKey splits a "FROM_TO" key back into its currency codes.
func SplitPairKey(key string) (from, to string, ok bool) {
	from, to, ok = strings.Cut(key, "_")
	if !ok || from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}
