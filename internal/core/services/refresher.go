package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/valutatrade/valutahub/internal/apperrors"
	"github.com/valutatrade/valutahub/internal/core/domain"
	"github.com/valutatrade/valutahub/internal/core/ports"
	"github.com/valutatrade/valutahub/internal/platform/metrics"
)

// DefaultSourceTimeout bounds a single source fetch. A source that exceeds
// it is treated as failed for the cycle, not as a hang.
const DefaultSourceTimeout = 10 * time.Second

// RefreshService drives the fetch → reconcile → commit cycle, once on
// demand or periodically on a cron schedule. Source failures degrade the
// cycle; only a storage failure on commit fails it outright. The service
// never exits the process: a failed cycle is logged and counted, and the
// scheduler keeps running for the next interval.
type RefreshService struct {
	sources    []ports.RateSource
	reconciler *RateReconciler
	rateCache  ports.RateCacheSvcFacade
	timeout    time.Duration
	interval   time.Duration
	logger     *slog.Logger
	metrics    *metrics.RefreshMetrics
	cron       *cron.Cron
}

// NewRefreshService creates a new RefreshService. Non-positive timeout or
// interval fall back to 10s and 1h respectively.
func NewRefreshService(
	sources []ports.RateSource,
	reconciler *RateReconciler,
	rateCache ports.RateCacheSvcFacade,
	timeout, interval time.Duration,
	m *metrics.RefreshMetrics,
	logger *slog.Logger,
) *RefreshService {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RefreshService{
		sources:    sources,
		reconciler: reconciler,
		rateCache:  rateCache,
		timeout:    timeout,
		interval:   interval,
		logger:     logger.With(slog.String("component", "refresher")),
		metrics:    m,
		cron:       cron.New(),
	}
}

// RunOnce executes one synchronous refresh cycle over all configured sources.
func (s *RefreshService) RunOnce(ctx context.Context) domain.RefreshResult {
	return s.run(ctx, s.sources)
}

// RunSource executes one refresh cycle restricted to the named source.
func (s *RefreshService) RunSource(ctx context.Context, sourceName string) (domain.RefreshResult, error) {
	for _, src := range s.sources {
		if src.Name() == sourceName {
			return s.run(ctx, []ports.RateSource{src}), nil
		}
	}
	return domain.RefreshResult{}, fmt.Errorf("%w: no source named %q", apperrors.ErrNotFound, sourceName)
}

func (s *RefreshService) run(ctx context.Context, sources []ports.RateSource) domain.RefreshResult {
	s.logger.Info("refresh cycle starting", slog.Int("sources", len(sources)))

	results := make(map[string]ports.SourceResult, len(sources))
	for _, src := range sources {
		results[src.Name()] = s.fetch(ctx, src)
	}

	snapshot, result := s.reconciler.Reconcile(results)
	for name, status := range result.Sources {
		if !status.Success {
			s.metrics.SourceFailuresTotal.WithLabelValues(name).Inc()
		}
	}

	if result.Count > 0 {
		if err := s.rateCache.Put(ctx, snapshot); err != nil {
			// The snapshot was never partially committed; the previous
			// one stays live. The cycle as a whole is failed.
			s.logger.Error("snapshot commit failed", slog.String("error", err.Error()))
			result.Success = false
			result.Error = err.Error()
		}
	}

	if result.Success {
		s.metrics.CyclesTotal.WithLabelValues("success").Inc()
		s.metrics.RatesMergedTotal.Add(float64(result.Count))
	} else {
		s.metrics.CyclesTotal.WithLabelValues("failed").Inc()
	}

	s.logger.Info("refresh cycle finished",
		slog.Bool("success", result.Success),
		slog.Int("rates_count", result.Count),
	)
	return result
}

func (s *RefreshService) fetch(ctx context.Context, src ports.RateSource) ports.SourceResult {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rates, err := src.FetchRates(fetchCtx)
	if err != nil {
		return ports.SourceResult{Err: &apperrors.SourceFetchError{Source: src.Name(), Err: err}}
	}
	return ports.SourceResult{Rates: rates}
}

// Start schedules periodic refresh cycles. The first cycle runs on the
// first tick, not immediately; callers wanting an eager refresh call
// RunOnce themselves.
func (s *RefreshService) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule refresh job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("refresh scheduler started", slog.Duration("interval", s.interval))
	return nil
}

// Stop halts the schedule and waits for an in-flight cycle to finish, so a
// shutdown cannot interrupt a commit.
func (s *RefreshService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("refresh scheduler stopped")
}
