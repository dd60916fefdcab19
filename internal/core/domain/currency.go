package domain

import (
	"fmt"
	"regexp"
)

// CurrencyKind distinguishes the two closed variants of the currency catalog.
type CurrencyKind string

const (
	KindFiat   CurrencyKind = "FIAT"
	KindCrypto CurrencyKind = "CRYPTO"
)

// Currency represents one entry of the closed currency catalog.
// Kind-specific metadata: IssuingCountry is set for fiat currencies,
// Algorithm and MarketCap for crypto currencies.
type Currency struct {
	Code           string       `json:"code"` // e.g. "USD", "BTC"
	Name           string       `json:"name"`
	Kind           CurrencyKind `json:"kind"`
	IssuingCountry string       `json:"issuingCountry,omitempty"`
	Algorithm      string       `json:"algorithm,omitempty"`
	MarketCap      float64      `json:"marketCap,omitempty"`
}

var currencyCodeRe = regexp.MustCompile(`^[A-Z0-9]{2,5}$`)

// ValidateCurrencyCode checks the code syntax: 2 to 5 uppercase
// alphanumeric characters, no embedded whitespace.
func ValidateCurrencyCode(code string) error {
	if !currencyCodeRe.MatchString(code) {
		return fmt.Errorf("currency code must be 2-5 uppercase alphanumeric characters, got %q", code)
	}
	return nil
}

// DefaultCurrencies returns the built-in catalog. The registry is seeded
// from this once at startup and is immutable afterwards.
func DefaultCurrencies() []Currency {
	return []Currency{
		{Code: "USD", Name: "US Dollar", Kind: KindFiat, IssuingCountry: "United States"},
		{Code: "EUR", Name: "Euro", Kind: KindFiat, IssuingCountry: "Eurozone"},
		{Code: "RUB", Name: "Russian Ruble", Kind: KindFiat, IssuingCountry: "Russia"},
		{Code: "JPY", Name: "Japanese Yen", Kind: KindFiat, IssuingCountry: "Japan"},
		{Code: "GBP", Name: "British Pound", Kind: KindFiat, IssuingCountry: "United Kingdom"},
		{Code: "BTC", Name: "Bitcoin", Kind: KindCrypto, Algorithm: "SHA-256", MarketCap: 1.12e12},
		{Code: "ETH", Name: "Ethereum", Kind: KindCrypto, Algorithm: "Ethash", MarketCap: 2.34e11},
		{Code: "ADA", Name: "Cardano", Kind: KindCrypto, Algorithm: "Ouroboros", MarketCap: 3.45e10},
		{Code: "DOT", Name: "Polkadot", Kind: KindCrypto, Algorithm: "NPoS", MarketCap: 8.91e9},
		{Code: "SOL", Name: "Solana", Kind: KindCrypto, Algorithm: "Proof of History", MarketCap: 4.56e10},
	}
}
