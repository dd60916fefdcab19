package dto

import (
	"github.com/valutatrade/valutahub/internal/core/domain"
)

// CurrencyResponse defines the data returned for a catalog currency.
// Kind-specific metadata fields are omitted when empty.
type CurrencyResponse struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Kind           string  `json:"kind"`
	IssuingCountry string  `json:"issuingCountry,omitempty"`
	Algorithm      string  `json:"algorithm,omitempty"`
	MarketCap      float64 `json:"marketCap,omitempty"`
}

// ToCurrencyResponse converts a domain.Currency to CurrencyResponse DTO.
func ToCurrencyResponse(c domain.Currency) CurrencyResponse {
	return CurrencyResponse{
		Code:           c.Code,
		Name:           c.Name,
		Kind:           string(c.Kind),
		IssuingCountry: c.IssuingCountry,
		Algorithm:      c.Algorithm,
		MarketCap:      c.MarketCap,
	}
}

// ToListCurrencyResponse converts a slice of domain.Currency to DTOs.
func ToListCurrencyResponse(currencies []domain.Currency) []CurrencyResponse {
	res := make([]CurrencyResponse, len(currencies))
	for i, c := range currencies {
		res[i] = ToCurrencyResponse(c)
	}
	return res
}
