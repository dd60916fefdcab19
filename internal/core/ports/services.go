package ports

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/valutatrade/valutahub/internal/core/domain"
)

// CurrencySvcFacade exposes the closed currency registry.
type CurrencySvcFacade interface {
	Lookup(code string) (domain.Currency, error)
	List() []domain.Currency
}

// RateCacheSvcFacade exposes the live rate snapshot and its history.
type RateCacheSvcFacade interface {
	// Put atomically commits a new snapshot and appends its history.
	Put(ctx context.Context, snapshot domain.RateSnapshot) error
	// Get returns the entry for (from, to) from the live snapshot. The bool
	// reports staleness against the configured TTL. A pair that was never
	// observed yields apperrors.ErrNotFound, never a fabricated rate.
	Get(ctx context.Context, fromCode, toCode string) (*domain.RateEntry, bool, error)
	History(ctx context.Context, fromCode, toCode string, limit int) ([]domain.RateHistoryRecord, error)
}

// LedgerSvcFacade exposes portfolio mutations and valuation.
type LedgerSvcFacade interface {
	Buy(ctx context.Context, userID, currencyCode string, amount decimal.Decimal) (decimal.Decimal, error)
	Sell(ctx context.Context, userID, currencyCode string, amount decimal.Decimal) (decimal.Decimal, error)
	Valuate(ctx context.Context, userID, baseCurrencyCode string) (*domain.Valuation, error)
	Portfolio(ctx context.Context, userID string) (*domain.Portfolio, error)
}

// RefreshSvcFacade drives refresh cycles on demand.
type RefreshSvcFacade interface {
	RunOnce(ctx context.Context) domain.RefreshResult
	RunSource(ctx context.Context, sourceName string) (domain.RefreshResult, error)
}

// UserSvcFacade handles registration and authentication.
type UserSvcFacade interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (token string, user *domain.User, err error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
}

// ServiceContainer holds instances of all application services. It is the
// entry point used by the handlers.
type ServiceContainer struct {
	Currency  CurrencySvcFacade
	RateCache RateCacheSvcFacade
	Ledger    LedgerSvcFacade
	Refresh   RefreshSvcFacade
	User      UserSvcFacade
}
