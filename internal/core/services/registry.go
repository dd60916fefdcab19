package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valutatrade/valutahub/internal/apperrors"
	"github.com/valutatrade/valutahub/internal/core/domain"
)

// CurrencyRegistry is the closed catalog of known currencies. It is built
// once at startup and never mutated afterwards, so lookups need no locking.
type CurrencyRegistry struct {
	byCode map[string]domain.Currency
}

// NewCurrencyRegistry builds a registry from the given catalog entries.
// Entries with an invalid code are rejected outright.
func NewCurrencyRegistry(currencies []domain.Currency) (*CurrencyRegistry, error) {
	byCode := make(map[string]domain.Currency, len(currencies))
	for _, c := range currencies {
		if err := domain.ValidateCurrencyCode(c.Code); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		if _, exists := byCode[c.Code]; exists {
			return nil, fmt.Errorf("%w: currency %q listed twice", apperrors.ErrDuplicate, c.Code)
		}
		byCode[c.Code] = c
	}
	return &CurrencyRegistry{byCode: byCode}, nil
}

// Lookup resolves a currency code (case-insensitive) against the registry.
func (r *CurrencyRegistry) Lookup(code string) (domain.Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := domain.ValidateCurrencyCode(normalized); err != nil {
		return domain.Currency{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	c, ok := r.byCode[normalized]
	if !ok {
		return domain.Currency{}, &apperrors.UnknownCurrencyError{Code: normalized}
	}
	return c, nil
}

// List returns the catalog ordered by code.
func (r *CurrencyRegistry) List() []domain.Currency {
	out := make([]domain.Currency, 0, len(r.byCode))
	for _, c := range r.byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
