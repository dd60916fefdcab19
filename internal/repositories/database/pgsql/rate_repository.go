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
	"github.com/valutatrade/valutahub/internal/models"
	"github.com/valutatrade/valutahub/internal/utils/mapping"
)

// PgxRateRepository implements ports.RateRepository using pgxpool. The live
// snapshot is a single row replaced transactionally; history rows are only
// ever appended.
type PgxRateRepository struct {
	BaseRepository
}

// NewPgxRateRepository creates a new PgxRateRepository.
func NewPgxRateRepository(db *pgxpool.Pool) *PgxRateRepository {
	return &PgxRateRepository{BaseRepository: BaseRepository{Pool: db}}
}

// SaveSnapshot replaces the persisted snapshot and appends the history rows
// in one transaction. A failure at any point rolls everything back, so the
// previous snapshot is never replaced by a partial one.
func (r *PgxRateRepository) SaveSnapshot(ctx context.Context, snapshot domain.RateSnapshot, history []domain.RateHistoryRecord) error {
	pairsJSON, err := json.Marshal(mapping.ToSnapshotPairs(snapshot))
	if err != nil {
		return &apperrors.StorageError{Op: "marshal snapshot", Err: err}
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO rate_snapshots (id, pairs, last_refresh)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET pairs = EXCLUDED.pairs, last_refresh = EXCLUDED.last_refresh`,
		pairsJSON, snapshot.RefreshedAt,
	)
	if err != nil {
		_ = r.Rollback(ctx, tx)
		return &apperrors.StorageError{Op: "save snapshot", Err: err}
	}

	for _, record := range history {
		_, err = tx.Exec(ctx, `
			INSERT INTO rate_history (id, from_currency, to_currency, rate, source, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			record.ID, record.FromCurrencyCode, record.ToCurrencyCode,
			record.Rate, record.Source, record.ObservedAt,
		)
		if err != nil {
			_ = r.Rollback(ctx, tx)
			return &apperrors.StorageError{Op: "append rate history", Err: err}
		}
	}

	return r.Commit(ctx, tx)
}

// LoadSnapshot returns the persisted snapshot, or apperrors.ErrNotFound when
// no refresh cycle has ever committed.
func (r *PgxRateRepository) LoadSnapshot(ctx context.Context) (*domain.RateSnapshot, error) {
	var (
		pairsJSON   []byte
		lastRefresh time.Time
	)
	err := r.Pool.QueryRow(ctx, `SELECT pairs, last_refresh FROM rate_snapshots WHERE id = 1`).
		Scan(&pairsJSON, &lastRefresh)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no persisted snapshot", apperrors.ErrNotFound)
		}
		return nil, &apperrors.StorageError{Op: "load snapshot", Err: err}
	}

	var pairs map[string]models.SnapshotPair
	if err := json.Unmarshal(pairsJSON, &pairs); err != nil {
		return nil, &apperrors.StorageError{Op: "unmarshal snapshot", Err: err}
	}
	snapshot, err := mapping.FromSnapshotPairs(pairs, lastRefresh)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "decode snapshot", Err: err}
	}
	return &snapshot, nil
}

// ListHistory returns history records ascending by observation time,
// optionally filtered to one pair.
func (r *PgxRateRepository) ListHistory(ctx context.Context, fromCode, toCode string, limit int) ([]domain.RateHistoryRecord, error) {
	query := `SELECT id, from_currency, to_currency, rate, source, observed_at FROM rate_history`
	args := []any{}
	if fromCode != "" && toCode != "" {
		query += ` WHERE from_currency = $1 AND to_currency = $2`
		args = append(args, fromCode, toCode)
	}
	query += ` ORDER BY observed_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "list rate history", Err: err}
	}
	defer rows.Close()

	records := []domain.RateHistoryRecord{}
	for rows.Next() {
		var rec domain.RateHistoryRecord
		if err := rows.Scan(&rec.ID, &rec.FromCurrencyCode, &rec.ToCurrencyCode,
			&rec.Rate, &rec.Source, &rec.ObservedAt); err != nil {
			return nil, &apperrors.StorageError{Op: "scan rate history", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StorageError{Op: "iterate rate history", Err: err}
	}
	return records, nil
}
