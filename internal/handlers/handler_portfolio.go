package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/valutatrade/valutahub/internal/apperrors"
	"github.com/valutatrade/valutahub/internal/core/ports"
	"github.com/valutatrade/valutahub/internal/dto"
	"github.com/valutatrade/valutahub/internal/middleware"
)

// portfolioHandler serves the authenticated user's holdings and trades.
type portfolioHandler struct {
	ledgerService ports.LedgerSvcFacade
}

func newPortfolioHandler(ls ports.LedgerSvcFacade) *portfolioHandler {
	return &portfolioHandler{ledgerService: ls}
}

func registerPortfolioRoutes(rg *gin.RouterGroup, ledgerService ports.LedgerSvcFacade) {
	h := newPortfolioHandler(ledgerService)

	portfolio := rg.Group("/portfolio")
	{
		portfolio.GET("", h.showPortfolio)
		portfolio.POST("/buy", h.buy)
		portfolio.POST("/sell", h.sell)
	}
}

func (h *portfolioHandler) showPortfolio(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	portfolio, err := h.ledgerService.Portfolio(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Failed to load portfolio", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load portfolio"})
		return
	}

	resp := dto.PortfolioResponse{UserID: userID, Wallets: portfolio.Wallets}

	if base := c.DefaultQuery("base", "USD"); base != "" {
		valuation, err := h.ledgerService.Valuate(c.Request.Context(), userID, base)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrNotFound):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				logger.Error("Failed to valuate portfolio", slog.String("error", err.Error()))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to valuate portfolio"})
			}
			return
		}
		resp.Valuation = valuation
	}

	c.JSON(http.StatusOK, resp)
}

func (h *portfolioHandler) buy(c *gin.Context) {
	h.trade(c, "buy", h.ledgerService.Buy)
}

func (h *portfolioHandler) sell(c *gin.Context) {
	h.trade(c, "sell", h.ledgerService.Sell)
}

type tradeFn func(ctx context.Context, userID, currencyCode string, amount decimal.Decimal) (decimal.Decimal, error)

func (h *portfolioHandler) trade(c *gin.Context, op string, apply tradeFn) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for trade", slog.String("op", op), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	newBalance, err := apply(c.Request.Context(), userID, req.CurrencyCode, req.Amount)
	if err != nil {
		var insufficient *apperrors.InsufficientFundsError
		switch {
		case errors.As(err, &insufficient):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":     insufficient.Error(),
				"available": insufficient.Available,
				"requested": insufficient.Requested,
				"currency":  insufficient.Currency,
			})
		case errors.Is(err, apperrors.ErrInvalidAmount), errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Trade failed", slog.String("op", op), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply " + op})
		}
		return
	}

	logger.Info("Trade applied",
		slog.String("op", op),
		slog.String("currency", req.CurrencyCode),
		slog.String("amount", req.Amount.String()),
	)
	c.JSON(http.StatusOK, dto.TradeResponse{
		CurrencyCode: strings.ToUpper(req.CurrencyCode),
		NewBalance:   newBalance,
	})
}
