package mapping

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/valutatrade/valutahub/internal/core/domain"
	"github.com/valutatrade/valutahub/internal/models"
)

// ToSnapshotPairs converts a domain snapshot into its persisted JSON shape.
func ToSnapshotPairs(snapshot domain.RateSnapshot) map[string]models.SnapshotPair {
	pairs := make(map[string]models.SnapshotPair, len(snapshot.Pairs))
	for key, entry := range snapshot.Pairs {
		pairs[key] = models.SnapshotPair{
			Rate:      entry.Rate.String(),
			UpdatedAt: entry.ObservedAt,
			Source:    entry.Source,
		}
	}
	return pairs
}

// FromSnapshotPairs rebuilds a domain snapshot from its persisted JSON shape.
// Malformed keys or rates fail the whole load: a snapshot is all-or-nothing.
func FromSnapshotPairs(pairs map[string]models.SnapshotPair, lastRefresh time.Time) (domain.RateSnapshot, error) {
	snapshot := domain.RateSnapshot{
		Pairs:       make(map[string]domain.RateEntry, len(pairs)),
		RefreshedAt: lastRefresh,
	}
	for key, pair := range pairs {
		from, to, ok := domain.SplitPairKey(key)
		if !ok {
			return domain.RateSnapshot{}, fmt.Errorf("malformed pair key %q in persisted snapshot", key)
		}
		rate, err := decimal.NewFromString(pair.Rate)
		if err != nil {
			return domain.RateSnapshot{}, fmt.Errorf("malformed rate for %q: %w", key, err)
		}
		snapshot.Pairs[key] = domain.RateEntry{
			FromCurrencyCode: from,
			ToCurrencyCode:   to,
			Rate:             rate,
			Source:           pair.Source,
			ObservedAt:       pair.UpdatedAt,
		}
	}
	return snapshot, nil
}
