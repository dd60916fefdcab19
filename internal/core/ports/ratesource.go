package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateSource is the capability of fetching exchange rate observations from
// one external provider. Keys are "FROM_TO" pair keys. A failed fetch
// degrades that source for the cycle only.
type RateSource interface {
	Name() string
	FetchRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// SourceResult carries the outcome of one source's fetch into reconciliation.
// Exactly one of Rates/Err is meaningful.
type SourceResult struct {
	Rates map[string]decimal.Decimal
	Err   error
}
