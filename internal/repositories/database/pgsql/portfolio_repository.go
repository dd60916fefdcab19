package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valutatrade/valutahub/internal/apperrors"
	"github.com/valutatrade/valutahub/internal/core/domain"
)

// PgxPortfolioRepository implements ports.PortfolioRepository using pgxpool.
// Wallets are stored as a JSONB map of currency code to balance.
type PgxPortfolioRepository struct {
	BaseRepository
}

// NewPgxPortfolioRepository creates a new PgxPortfolioRepository.
func NewPgxPortfolioRepository(db *pgxpool.Pool) *PgxPortfolioRepository {
	return &PgxPortfolioRepository{BaseRepository: BaseRepository{Pool: db}}
}

// CreatePortfolio inserts the portfolio row. Creating an already existing
// portfolio is a no-op: a user owns exactly one portfolio for life.
func (r *PgxPortfolioRepository) CreatePortfolio(ctx context.Context, portfolio domain.Portfolio) error {
	walletsJSON, err := json.Marshal(portfolio.Wallets)
	if err != nil {
		return &apperrors.StorageError{Op: "marshal wallets", Err: err}
	}
	_, err = r.Pool.Exec(ctx, `
		INSERT INTO portfolios (user_id, wallets, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		portfolio.UserID, walletsJSON, portfolio.UpdatedAt,
	)
	if err != nil {
		return &apperrors.StorageError{Op: "create portfolio", Err: err}
	}
	return nil
}

// FindPortfolioByUserID returns the user's portfolio, or apperrors.ErrNotFound.
func (r *PgxPortfolioRepository) FindPortfolioByUserID(ctx context.Context, userID string) (*domain.Portfolio, error) {
	var (
		walletsJSON []byte
		updatedAt   time.Time
	)
	err := r.Pool.QueryRow(ctx,
		`SELECT wallets, updated_at FROM portfolios WHERE user_id = $1`, userID,
	).Scan(&walletsJSON, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no portfolio for user %s", apperrors.ErrNotFound, userID)
		}
		return nil, &apperrors.StorageError{Op: "find portfolio", Err: err}
	}

	wallets := domain.Wallet{}
	if err := json.Unmarshal(walletsJSON, &wallets); err != nil {
		return nil, &apperrors.StorageError{Op: "unmarshal wallets", Err: err}
	}
	return &domain.Portfolio{UserID: userID, Wallets: wallets, UpdatedAt: updatedAt}, nil
}

// UpdateWallets replaces the user's wallet map wholesale. The ledger
// serializes mutations per user, so the replace cannot lose updates.
func (r *PgxPortfolioRepository) UpdateWallets(ctx context.Context, userID string, wallets domain.Wallet) error {
	walletsJSON, err := json.Marshal(wallets)
	if err != nil {
		return &apperrors.StorageError{Op: "marshal wallets", Err: err}
	}
	tag, err := r.Pool.Exec(ctx, `
		UPDATE portfolios SET wallets = $2, updated_at = $3 WHERE user_id = $1`,
		userID, walletsJSON, time.Now(),
	)
	if err != nil {
		return &apperrors.StorageError{Op: "update wallets", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: no portfolio for user %s", apperrors.ErrNotFound, userID)
	}
	return nil
}
