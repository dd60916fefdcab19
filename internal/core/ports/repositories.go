package ports

import (
	"context"

	"github.com/valutatrade/valutahub/internal/core/domain"
)

// RateRepository persists the live snapshot and the append-only rate history.
type RateRepository interface {
	// SaveSnapshot replaces the persisted snapshot and appends the given
	// history records in a single transaction. Either everything is
	// committed or nothing is.
	SaveSnapshot(ctx context.Context, snapshot domain.RateSnapshot, history []domain.RateHistoryRecord) error

	// LoadSnapshot returns the last persisted snapshot, or apperrors.ErrNotFound
	// if no refresh cycle has ever committed.
	LoadSnapshot(ctx context.Context) (*domain.RateSnapshot, error)

	// ListHistory returns history records ascending by observation time.
	// Empty from/to list all pairs; limit <= 0 means no limit.
	ListHistory(ctx context.Context, fromCode, toCode string, limit int) ([]domain.RateHistoryRecord, error)
}

// PortfolioRepository persists per-user portfolios. Serialization of
// concurrent mutations to the same portfolio is the ledger service's
// responsibility (per-user lock), not the repository's.
type PortfolioRepository interface {
	CreatePortfolio(ctx context.Context, portfolio domain.Portfolio) error
	FindPortfolioByUserID(ctx context.Context, userID string) (*domain.Portfolio, error)
	UpdateWallets(ctx context.Context, userID string, wallets domain.Wallet) error
}

// UserRepository persists user identities.
type UserRepository interface {
	SaveUser(ctx context.Context, user domain.User) error
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
}
