package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet maps a currency code to the held balance. Balances are always
// positive: an entry drained to exactly zero is removed from the map.
type Wallet map[string]decimal.Decimal

// Clone returns an independent copy of the wallet.
func (w Wallet) Clone() Wallet {
	out := make(Wallet, len(w))
	for code, amount := range w {
		out[code] = amount
	}
	return out
}

// Portfolio holds the wallet of exactly one user. It is created empty at
// registration time and mutated only through ledger operations.
type Portfolio struct {
	UserID    string    `json:"userID"`
	Wallets   Wallet    `json:"wallets"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValuationLine prices one wallet entry against the base currency.
// Priced is false when no rate was available; the line then contributes
// zero to the total instead of failing the whole valuation. Stale marks
// a rate older than the configured TTL (still priced, but degraded).
type ValuationLine struct {
	CurrencyCode string          `json:"currencyCode"`
	Amount       decimal.Decimal `json:"amount"`
	Rate         decimal.Decimal `json:"rate"`
	Value        decimal.Decimal `json:"value"`
	Priced       bool            `json:"priced"`
	Stale        bool            `json:"stale,omitempty"`
}

// Valuation is the best-effort pricing of a whole portfolio in one base currency.
type Valuation struct {
	BaseCurrencyCode string          `json:"baseCurrencyCode"`
	Lines            []ValuationLine `json:"lines"`
	Total            decimal.Decimal `json:"total"`
}
