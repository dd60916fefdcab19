package dto

import (
	"github.com/shopspring/decimal"
	"github.com/valutatrade/valutahub/internal/core/domain"
)

// TradeRequest defines the payload for buy and sell operations.
// Amount positivity is enforced by the ledger before any mutation.
type TradeRequest struct {
	CurrencyCode string          `json:"currency" binding:"required,currencycode"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
}

// TradeResponse reports the balance after a buy or sell.
type TradeResponse struct {
	CurrencyCode string          `json:"currency"`
	NewBalance   decimal.Decimal `json:"newBalance"`
}

// PortfolioResponse returns the raw holdings plus an optional valuation.
type PortfolioResponse struct {
	UserID    string                     `json:"userID"`
	Wallets   map[string]decimal.Decimal `json:"wallets"`
	Valuation *domain.Valuation          `json:"valuation,omitempty"`
}
