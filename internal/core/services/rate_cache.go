package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valutatrade/valutahub/internal/apperrors"
	"github.com/valutatrade/valutahub/internal/core/domain"
	"github.com/valutatrade/valutahub/internal/core/ports"
)

// DefaultRatesTTL is the age beyond which a cached rate is reported as stale.
const DefaultRatesTTL = time.Hour

// RateCacheService holds the live snapshot in memory behind a mutex-guarded
// pointer swap and persists every committed snapshot plus its history rows
// through the rate repository. Readers never observe a half-replaced
// snapshot: they see the pre-put view in full until the swap, then the
// post-put view in full.
type RateCacheService struct {
	rateRepo ports.RateRepository
	ttl      time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	live *domain.RateSnapshot
}

// NewRateCacheService creates a new RateCacheService. A non-positive ttl
// falls back to DefaultRatesTTL.
func NewRateCacheService(rateRepo ports.RateRepository, ttl time.Duration, logger *slog.Logger) *RateCacheService {
	if ttl <= 0 {
		ttl = DefaultRatesTTL
	}
	return &RateCacheService{
		rateRepo: rateRepo,
		ttl:      ttl,
		logger:   logger,
	}
}

// Warm loads the last persisted snapshot so reads survive a restart.
// A missing snapshot (fresh installation) is not an error.
func (s *RateCacheService) Warm(ctx context.Context) error {
	snapshot, err := s.rateRepo.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Info("no persisted rate snapshot to warm from")
			return nil
		}
		return fmt.Errorf("failed to warm rate cache: %w", err)
	}
	s.mu.Lock()
	s.live = snapshot
	s.mu.Unlock()
	s.logger.Info("rate cache warmed",
		slog.Int("pairs", len(snapshot.Pairs)),
		slog.Time("refreshed_at", snapshot.RefreshedAt),
	)
	return nil
}

// Put persists the snapshot and its history rows in one transaction, then
// swaps the live view. On a storage failure the previous snapshot stays
// live and fully readable; the error is surfaced to the caller untouched.
func (s *RateCacheService) Put(ctx context.Context, snapshot domain.RateSnapshot) error {
	history := make([]domain.RateHistoryRecord, 0, len(snapshot.Pairs))
	for _, entry := range snapshot.Pairs {
		history = append(history, domain.RateHistoryRecord{
			ID:               uuid.NewString(),
			FromCurrencyCode: entry.FromCurrencyCode,
			ToCurrencyCode:   entry.ToCurrencyCode,
			Rate:             entry.Rate,
			Source:           entry.Source,
			ObservedAt:       entry.ObservedAt,
		})
	}

	if err := s.rateRepo.SaveSnapshot(ctx, snapshot, history); err != nil {
		return err
	}

	s.mu.Lock()
	s.live = &snapshot
	s.mu.Unlock()
	return nil
}

// Get returns the live entry for (from, to) and whether it is older than the
// TTL. Staleness is degraded-but-usable: the rate is still returned with the
// flag set. An unobserved pair yields apperrors.ErrNotFound; the cache never
// invents a rate for a missing pair.
func (s *RateCacheService) Get(ctx context.Context, fromCode, toCode string) (*domain.RateEntry, bool, error) {
	key := domain.PairKey(strings.ToUpper(fromCode), strings.ToUpper(toCode))

	s.mu.RLock()
	snapshot := s.live
	s.mu.RUnlock()

	if snapshot == nil {
		return nil, false, fmt.Errorf("%w: no rate available for %s", apperrors.ErrNotFound, key)
	}
	entry, ok := snapshot.Pairs[key]
	if !ok {
		return nil, false, fmt.Errorf("%w: no rate available for %s", apperrors.ErrNotFound, key)
	}
	stale := time.Since(entry.ObservedAt) > s.ttl
	return &entry, stale, nil
}

// History lists persisted history records ascending by observation time,
// optionally filtered to one pair.
func (s *RateCacheService) History(ctx context.Context, fromCode, toCode string, limit int) ([]domain.RateHistoryRecord, error) {
	return s.rateRepo.ListHistory(ctx, strings.ToUpper(fromCode), strings.ToUpper(toCode), limit)
}
