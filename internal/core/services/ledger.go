package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/valutatrade/valutahub/internal/apperrors"
	"github.com/valutatrade/valutahub/internal/core/domain"
	"github.com/valutatrade/valutahub/internal/core/ports"
)

// LedgerService applies buy/sell mutations to per-user wallets and prices
// portfolios against the rate cache. Mutations on the same user are
// serialized with a per-user lock so the read-modify-write of the wallet
// map cannot lose updates; different users proceed in parallel.
type LedgerService struct {
	portfolioRepo ports.PortfolioRepository
	currencySvc   ports.CurrencySvcFacade
	rateCache     ports.RateCacheSvcFacade
	logger        *slog.Logger

	locksMu   sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	portfolioRepo ports.PortfolioRepository,
	currencySvc ports.CurrencySvcFacade,
	rateCache ports.RateCacheSvcFacade,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		portfolioRepo: portfolioRepo,
		currencySvc:   currencySvc,
		rateCache:     rateCache,
		logger:        logger,
		userLocks:     make(map[string]*sync.Mutex),
	}
}

func (s *LedgerService) lockFor(userID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.userLocks[userID] = mu
	}
	return mu
}

// Buy credits amount units of the currency to the user's wallet and returns
// the new balance. Buying needs no rate lookup: it increases a currency
// balance directly. All validation happens before any state is touched.
func (s *LedgerService) Buy(ctx context.Context, userID, currencyCode string, amount decimal.Decimal) (decimal.Decimal, error) {
	currency, err := s.validateMutation(currencyCode, amount)
	if err != nil {
		return decimal.Zero, err
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	portfolio, err := s.loadOrCreatePortfolio(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	wallets := portfolio.Wallets.Clone()
	newBalance := wallets[currency.Code].Add(amount)
	wallets[currency.Code] = newBalance

	if err := s.portfolioRepo.UpdateWallets(ctx, userID, wallets); err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("buy applied",
		slog.String("user_id", userID),
		slog.String("currency", currency.Code),
		slog.String("amount", amount.String()),
		slog.String("new_balance", newBalance.String()),
	)
	return newBalance, nil
}

// Sell debits amount units of the currency from the user's wallet and
// returns the new balance. A balance drained to exactly zero is removed
// from the wallet; no zero entries persist. Selling beyond the available
// balance fails with InsufficientFundsError and leaves the state unchanged.
func (s *LedgerService) Sell(ctx context.Context, userID, currencyCode string, amount decimal.Decimal) (decimal.Decimal, error) {
	currency, err := s.validateMutation(currencyCode, amount)
	if err != nil {
		return decimal.Zero, err
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	portfolio, err := s.portfolioRepo.FindPortfolioByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return decimal.Zero, &apperrors.InsufficientFundsError{
				Available: decimal.Zero,
				Requested: amount,
				Currency:  currency.Code,
			}
		}
		return decimal.Zero, err
	}

	available := portfolio.Wallets[currency.Code]
	if available.LessThan(amount) {
		return decimal.Zero, &apperrors.InsufficientFundsError{
			Available: available,
			Requested: amount,
			Currency:  currency.Code,
		}
	}

	wallets := portfolio.Wallets.Clone()
	newBalance := available.Sub(amount)
	if newBalance.IsZero() {
		delete(wallets, currency.Code)
	} else {
		wallets[currency.Code] = newBalance
	}

	if err := s.portfolioRepo.UpdateWallets(ctx, userID, wallets); err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("sell applied",
		slog.String("user_id", userID),
		slog.String("currency", currency.Code),
		slog.String("amount", amount.String()),
		slog.String("new_balance", newBalance.String()),
	)
	return newBalance, nil
}

// Valuate prices every wallet entry against the base currency. A missing
// rate marks that line unpriced and contributes zero instead of aborting
// the whole valuation; a stale rate is still priced but flagged. Identity
// pairs value at 1 without touching the cache.
func (s *LedgerService) Valuate(ctx context.Context, userID, baseCurrencyCode string) (*domain.Valuation, error) {
	base, err := s.currencySvc.Lookup(baseCurrencyCode)
	if err != nil {
		return nil, err
	}

	portfolio, err := s.portfolioRepo.FindPortfolioByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.Valuation{BaseCurrencyCode: base.Code, Total: decimal.Zero}, nil
		}
		return nil, err
	}

	codes := make([]string, 0, len(portfolio.Wallets))
	for code := range portfolio.Wallets {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	valuation := &domain.Valuation{
		BaseCurrencyCode: base.Code,
		Lines:            make([]domain.ValuationLine, 0, len(codes)),
		Total:            decimal.Zero,
	}

	for _, code := range codes {
		amount := portfolio.Wallets[code]
		line := domain.ValuationLine{CurrencyCode: code, Amount: amount}

		if code == base.Code {
			line.Rate = decimal.NewFromInt(1)
			line.Value = amount
			line.Priced = true
		} else if entry, stale, err := s.rateCache.Get(ctx, code, base.Code); err == nil {
			line.Rate = entry.Rate
			line.Value = amount.Mul(entry.Rate)
			line.Priced = true
			line.Stale = stale
		} else {
			line.Value = decimal.Zero
			s.logger.Warn("no rate for valuation line",
				slog.String("user_id", userID),
				slog.String("pair", domain.PairKey(code, base.Code)),
			)
		}

		if line.Priced {
			valuation.Total = valuation.Total.Add(line.Value)
		}
		valuation.Lines = append(valuation.Lines, line)
	}

	return valuation, nil
}

// Portfolio returns the user's raw holdings.
func (s *LedgerService) Portfolio(ctx context.Context, userID string) (*domain.Portfolio, error) {
	portfolio, err := s.portfolioRepo.FindPortfolioByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.Portfolio{UserID: userID, Wallets: domain.Wallet{}}, nil
		}
		return nil, err
	}
	return portfolio, nil
}

func (s *LedgerService) validateMutation(currencyCode string, amount decimal.Decimal) (domain.Currency, error) {
	if !amount.IsPositive() {
		return domain.Currency{}, fmt.Errorf("%w: got %s", apperrors.ErrInvalidAmount, amount)
	}
	return s.currencySvc.Lookup(currencyCode)
}

// loadOrCreatePortfolio backfills the empty portfolio row for accounts that
// predate portfolio-at-registration.
func (s *LedgerService) loadOrCreatePortfolio(ctx context.Context, userID string) (*domain.Portfolio, error) {
	portfolio, err := s.portfolioRepo.FindPortfolioByUserID(ctx, userID)
	if err == nil {
		return portfolio, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	fresh := domain.Portfolio{UserID: userID, Wallets: domain.Wallet{}, UpdatedAt: time.Now()}
	if err := s.portfolioRepo.CreatePortfolio(ctx, fresh); err != nil {
		return nil, err
	}
	return &fresh, nil
}
