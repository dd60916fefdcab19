package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/valutatrade/valutahub/internal/apperrors"
	"github.com/valutatrade/valutahub/internal/core/domain"
	"github.com/valutatrade/valutahub/internal/core/services"
)

// --- Mock PortfolioRepository ---
type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) CreatePortfolio(ctx context.Context, portfolio domain.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

func (m *MockPortfolioRepository) FindPortfolioByUserID(ctx context.Context, userID string) (*domain.Portfolio, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) UpdateWallets(ctx context.Context, userID string, wallets domain.Wallet) error {
	args := m.Called(ctx, userID, wallets)
	return args.Error(0)
}

// --- Mock RateCacheSvcFacade ---
type MockRateCache struct {
	mock.Mock
}

func (m *MockRateCache) Put(ctx context.Context, snapshot domain.RateSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockRateCache) Get(ctx context.Context, fromCode, toCode string) (*domain.RateEntry, bool, error) {
	args := m.Called(ctx, fromCode, toCode)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.RateEntry), args.Bool(1), args.Error(2)
}

func (m *MockRateCache) History(ctx context.Context, fromCode, toCode string, limit int) ([]domain.RateHistoryRecord, error) {
	args := m.Called(ctx, fromCode, toCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RateHistoryRecord), args.Error(1)
}

// --- Test Suite ---
type LedgerServiceTestSuite struct {
	suite.Suite
	mockRepo  *MockPortfolioRepository
	mockCache *MockRateCache
	service   *services.LedgerService
	userID    string
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockPortfolioRepository)
	suite.mockCache = new(MockRateCache)
	registry, err := services.NewCurrencyRegistry(domain.DefaultCurrencies())
	suite.Require().NoError(err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.service = services.NewLedgerService(suite.mockRepo, registry, suite.mockCache, logger)
	suite.userID = "user-1"
}

func (suite *LedgerServiceTestSuite) portfolio(wallets domain.Wallet) *domain.Portfolio {
	return &domain.Portfolio{UserID: suite.userID, Wallets: wallets, UpdatedAt: time.Now()}
}

// --- Buy ---

func (suite *LedgerServiceTestSuite) TestBuy_AccumulatesBalance() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).
		Return(suite.portfolio(domain.Wallet{"BTC": decimal.RequireFromString("0.5")}), nil).Once()
	suite.mockRepo.On("UpdateWallets", ctx, suite.userID, mock.MatchedBy(func(w domain.Wallet) bool {
		return w["BTC"].Equal(decimal.RequireFromString("0.75"))
	})).Return(nil).Once()

	newBalance, err := suite.service.Buy(ctx, suite.userID, "BTC", decimal.RequireFromString("0.25"))

	suite.Require().NoError(err)
	suite.True(newBalance.Equal(decimal.RequireFromString("0.75")))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestBuy_CreatesMissingPortfolio() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("CreatePortfolio", ctx, mock.MatchedBy(func(p domain.Portfolio) bool {
		return p.UserID == suite.userID && len(p.Wallets) == 0
	})).Return(nil).Once()
	suite.mockRepo.On("UpdateWallets", ctx, suite.userID, mock.MatchedBy(func(w domain.Wallet) bool {
		return w["ETH"].Equal(decimal.NewFromInt(2))
	})).Return(nil).Once()

	newBalance, err := suite.service.Buy(ctx, suite.userID, "ETH", decimal.NewFromInt(2))

	suite.Require().NoError(err)
	suite.True(newBalance.Equal(decimal.NewFromInt(2)))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestBuy_LowercaseCodeNormalized() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).
		Return(suite.portfolio(domain.Wallet{}), nil).Once()
	suite.mockRepo.On("UpdateWallets", ctx, suite.userID, mock.MatchedBy(func(w domain.Wallet) bool {
		_, ok := w["BTC"]
		return ok
	})).Return(nil).Once()

	_, err := suite.service.Buy(ctx, suite.userID, "btc", decimal.NewFromInt(1))

	suite.NoError(err)
}

func (suite *LedgerServiceTestSuite) TestBuy_RejectsNonPositiveAmount() {
	ctx := context.Background()

	_, err := suite.service.Buy(ctx, suite.userID, "BTC", decimal.Zero)
	suite.ErrorIs(err, apperrors.ErrInvalidAmount)

	_, err = suite.service.Buy(ctx, suite.userID, "BTC", decimal.NewFromInt(-1))
	suite.ErrorIs(err, apperrors.ErrInvalidAmount)

	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateWallets", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestBuy_UnknownCurrency() {
	ctx := context.Background()

	_, err := suite.service.Buy(ctx, suite.userID, "XYZ", decimal.NewFromInt(1))

	var unknownErr *apperrors.UnknownCurrencyError
	suite.Require().ErrorAs(err, &unknownErr)
	suite.Equal("XYZ", unknownErr.Code)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// --- Sell ---

func (suite *LedgerServiceTestSuite) TestSell_PartialLeavesRemainder() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).
		Return(suite.portfolio(domain.Wallet{"BTC": decimal.NewFromInt(1)}), nil).Once()
	suite.mockRepo.On("UpdateWallets", ctx, suite.userID, mock.MatchedBy(func(w domain.Wallet) bool {
		return w["BTC"].Equal(decimal.RequireFromString("0.25"))
	})).Return(nil).Once()

	newBalance, err := suite.service.Sell(ctx, suite.userID, "BTC", decimal.RequireFromString("0.75"))

	suite.Require().NoError(err)
	suite.True(newBalance.Equal(decimal.RequireFromString("0.25")))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestSell_ToZeroRemovesWalletKey() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).
		Return(suite.portfolio(domain.Wallet{
			"BTC": decimal.RequireFromString("0.75"),
			"EUR": decimal.NewFromInt(10),
		}), nil).Once()
	suite.mockRepo.On("UpdateWallets", ctx, suite.userID, mock.MatchedBy(func(w domain.Wallet) bool {
		_, btcLeft := w["BTC"]
		return !btcLeft && w["EUR"].Equal(decimal.NewFromInt(10))
	})).Return(nil).Once()

	newBalance, err := suite.service.Sell(ctx, suite.userID, "BTC", decimal.RequireFromString("0.75"))

	suite.Require().NoError(err)
	suite.True(newBalance.IsZero())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestSell_InsufficientFunds() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).
		Return(suite.portfolio(domain.Wallet{"BTC": decimal.RequireFromString("0.1")}), nil).Once()

	_, err := suite.service.Sell(ctx, suite.userID, "BTC", decimal.RequireFromString("0.5"))

	var fundsErr *apperrors.InsufficientFundsError
	suite.Require().ErrorAs(err, &fundsErr)
	suite.True(fundsErr.Available.Equal(decimal.RequireFromString("0.1")))
	suite.True(fundsErr.Requested.Equal(decimal.RequireFromString("0.5")))
	suite.Equal("BTC", fundsErr.Currency)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateWallets", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestSell_NoPortfolioIsInsufficientFunds() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.Sell(ctx, suite.userID, "BTC", decimal.RequireFromString("0.1"))

	var fundsErr *apperrors.InsufficientFundsError
	suite.Require().ErrorAs(err, &fundsErr)
	suite.True(fundsErr.Available.IsZero())
}

func (suite *LedgerServiceTestSuite) TestSell_AbsentCurrencyIsInsufficientFunds() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).
		Return(suite.portfolio(domain.Wallet{"EUR": decimal.NewFromInt(100)}), nil).Once()

	_, err := suite.service.Sell(ctx, suite.userID, "BTC", decimal.RequireFromString("0.1"))

	var fundsErr *apperrors.InsufficientFundsError
	suite.Require().ErrorAs(err, &fundsErr)
	suite.True(fundsErr.Available.IsZero())
	suite.Equal("BTC", fundsErr.Currency)
}

// --- Valuate ---

func (suite *LedgerServiceTestSuite) TestValuate_PricesAgainstBase() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).
		Return(suite.portfolio(domain.Wallet{
			"BTC": decimal.RequireFromString("0.5"),
			"USD": decimal.NewFromInt(100),
		}), nil).Once()
	suite.mockCache.On("Get", ctx, "BTC", "USD").
		Return(&domain.RateEntry{Rate: decimal.NewFromInt(60000)}, false, nil).Once()

	valuation, err := suite.service.Valuate(ctx, suite.userID, "USD")

	suite.Require().NoError(err)
	suite.Equal("USD", valuation.BaseCurrencyCode)
	suite.Require().Len(valuation.Lines, 2)

	// Lines come back sorted by currency code.
	btc := valuation.Lines[0]
	suite.Equal("BTC", btc.CurrencyCode)
	suite.True(btc.Priced)
	suite.True(btc.Value.Equal(decimal.NewFromInt(30000)))

	usd := valuation.Lines[1]
	suite.Equal("USD", usd.CurrencyCode)
	suite.True(usd.Priced)
	suite.True(usd.Rate.Equal(decimal.NewFromInt(1)), "identity pair needs no cache lookup")
	suite.True(usd.Value.Equal(decimal.NewFromInt(100)))

	suite.True(valuation.Total.Equal(decimal.NewFromInt(30100)))
	suite.mockCache.AssertNotCalled(suite.T(), "Get", ctx, "USD", "USD")
}

func (suite *LedgerServiceTestSuite) TestValuate_MissingRateDegradesLine() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).
		Return(suite.portfolio(domain.Wallet{
			"ADA": decimal.NewFromInt(1000),
			"BTC": decimal.NewFromInt(1),
		}), nil).Once()
	suite.mockCache.On("Get", ctx, "ADA", "USD").Return(nil, false, apperrors.ErrNotFound).Once()
	suite.mockCache.On("Get", ctx, "BTC", "USD").
		Return(&domain.RateEntry{Rate: decimal.NewFromInt(60000)}, false, nil).Once()

	valuation, err := suite.service.Valuate(ctx, suite.userID, "USD")

	suite.Require().NoError(err)
	suite.Require().Len(valuation.Lines, 2)

	ada := valuation.Lines[0]
	suite.False(ada.Priced, "an unpriced line is reported, not dropped")
	suite.True(ada.Value.IsZero())

	suite.True(valuation.Total.Equal(decimal.NewFromInt(60000)), "total counts only priced lines")
}

func (suite *LedgerServiceTestSuite) TestValuate_StaleRateIsFlaggedButPriced() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).
		Return(suite.portfolio(domain.Wallet{"BTC": decimal.NewFromInt(1)}), nil).Once()
	suite.mockCache.On("Get", ctx, "BTC", "USD").
		Return(&domain.RateEntry{Rate: decimal.NewFromInt(60000)}, true, nil).Once()

	valuation, err := suite.service.Valuate(ctx, suite.userID, "USD")

	suite.Require().NoError(err)
	suite.True(valuation.Lines[0].Priced)
	suite.True(valuation.Lines[0].Stale)
	suite.True(valuation.Total.Equal(decimal.NewFromInt(60000)))
}

func (suite *LedgerServiceTestSuite) TestValuate_UnknownBase() {
	_, err := suite.service.Valuate(context.Background(), suite.userID, "XYZ")

	var unknownErr *apperrors.UnknownCurrencyError
	suite.ErrorAs(err, &unknownErr)
}

func (suite *LedgerServiceTestSuite) TestValuate_NoPortfolioIsEmptyValuation() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).Return(nil, apperrors.ErrNotFound).Once()

	valuation, err := suite.service.Valuate(ctx, suite.userID, "USD")

	suite.Require().NoError(err)
	suite.Empty(valuation.Lines)
	suite.True(valuation.Total.IsZero())
}

// --- Portfolio ---

func (suite *LedgerServiceTestSuite) TestPortfolio_NotFoundIsEmpty() {
	ctx := context.Background()
	suite.mockRepo.On("FindPortfolioByUserID", ctx, suite.userID).Return(nil, apperrors.ErrNotFound).Once()

	portfolio, err := suite.service.Portfolio(ctx, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(suite.userID, portfolio.UserID)
	suite.Empty(portfolio.Wallets)
}

// memPortfolioRepo is a minimal in-memory repository used to observe
// read-modify-write interleavings under concurrency.
type memPortfolioRepo struct {
	mu      sync.Mutex
	wallets domain.Wallet
}

func (r *memPortfolioRepo) CreatePortfolio(ctx context.Context, portfolio domain.Portfolio) error {
	return nil
}

func (r *memPortfolioRepo) FindPortfolioByUserID(ctx context.Context, userID string) (*domain.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &domain.Portfolio{UserID: userID, Wallets: r.wallets.Clone()}, nil
}

func (r *memPortfolioRepo) UpdateWallets(ctx context.Context, userID string, wallets domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets = wallets.Clone()
	return nil
}

// Concurrent buys on the same user must all land: the per-user lock
// serializes the read-modify-write against the repository.
func (suite *LedgerServiceTestSuite) TestBuy_ConcurrentSameUserSerialized() {
	ctx := context.Background()
	repo := &memPortfolioRepo{wallets: domain.Wallet{}}
	registry, err := services.NewCurrencyRegistry(domain.DefaultCurrencies())
	suite.Require().NoError(err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := services.NewLedgerService(repo, registry, suite.mockCache, logger)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Buy(ctx, suite.userID, "BTC", decimal.NewFromInt(1))
			suite.NoError(err)
		}()
	}
	wg.Wait()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	suite.True(repo.wallets["BTC"].Equal(decimal.NewFromInt(workers)), "no lost updates under concurrency")
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
