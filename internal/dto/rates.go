package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/valutatrade/valutahub/internal/core/domain"
)

// RateResponse defines the data returned for one cached exchange rate.
// Stale marks an entry older than the configured TTL; the rate is still
// usable, just degraded.
type RateResponse struct {
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	Source           string          `json:"source"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Stale            bool            `json:"stale"`
}

// ToRateResponse converts a domain.RateEntry plus its staleness flag to a DTO.
func ToRateResponse(entry *domain.RateEntry, stale bool) RateResponse {
	return RateResponse{
		FromCurrencyCode: entry.FromCurrencyCode,
		ToCurrencyCode:   entry.ToCurrencyCode,
		Rate:             entry.Rate,
		Source:           entry.Source,
		UpdatedAt:        entry.ObservedAt,
		Stale:            stale,
	}
}
