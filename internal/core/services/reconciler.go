package services

import (
	"log/slog"
	"sort"
	"time"

	"github.com/valutatrade/valutahub/internal/core/domain"
	"github.com/valutatrade/valutahub/internal/core/ports"
)

// RateReconciler merges per-source fetch results into one consistent snapshot.
// A failed source contributes zero entries and is recorded in the per-source
// detail; reconciliation itself never fails.
type RateReconciler struct {
	logger *slog.Logger
}

// NewRateReconciler creates a new RateReconciler.
func NewRateReconciler(logger *slog.Logger) *RateReconciler {
	return &RateReconciler{logger: logger}
}

// Reconcile merges the given source results. Every merged entry is stamped
// with a single wall-clock timestamp taken once per cycle, so all rates of a
// snapshot are co-timed. Sources are iterated in sorted name order; if two
// sources report the same pair, the later-iterated source wins. That overlap
// is not expected in practice (fiat and crypto pairs come from different
// providers) and is logged when it happens.
func (r *RateReconciler) Reconcile(results map[string]ports.SourceResult) (domain.RateSnapshot, domain.RefreshResult) {
	refreshedAt := time.Now().UTC()

	snapshot := domain.RateSnapshot{
		Pairs:       make(map[string]domain.RateEntry),
		RefreshedAt: refreshedAt,
	}
	detail := make(map[string]domain.SourceStatus, len(results))

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := results[name]
		if res.Err != nil {
			r.logger.Error("rate source failed",
				slog.String("source", name),
				slog.String("error", res.Err.Error()),
			)
			detail[name] = domain.SourceStatus{Success: false, Error: res.Err.Error()}
			continue
		}

		merged := 0
		for key, rate := range res.Rates {
			from, to, ok := domain.SplitPairKey(key)
			if !ok {
				r.logger.Warn("skipping malformed pair key",
					slog.String("source", name),
					slog.String("key", key),
				)
				continue
			}
			if !rate.IsPositive() {
				r.logger.Warn("skipping non-positive rate",
					slog.String("source", name),
					slog.String("pair", key),
					slog.String("rate", rate.String()),
				)
				continue
			}
			if prev, exists := snapshot.Pairs[key]; exists {
				r.logger.Debug("pair reported by multiple sources, keeping later source",
					slog.String("pair", key),
					slog.String("previous_source", prev.Source),
					slog.String("source", name),
				)
			}
			snapshot.Pairs[key] = domain.RateEntry{
				FromCurrencyCode: from,
				ToCurrencyCode:   to,
				Rate:             rate,
				Source:           name,
				ObservedAt:       refreshedAt,
			}
			merged++
		}
		detail[name] = domain.SourceStatus{Success: true, Count: merged}
	}

	return snapshot, domain.RefreshResult{
		Success:   len(snapshot.Pairs) > 0,
		Count:     len(snapshot.Pairs),
		Sources:   detail,
		Timestamp: refreshedAt,
	}
}
