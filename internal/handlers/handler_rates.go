package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/valutatrade/valutahub/internal/apperrors"
	"github.com/valutatrade/valutahub/internal/core/ports"
	"github.com/valutatrade/valutahub/internal/dto"
	"github.com/valutatrade/valutahub/internal/middleware"
)

// rateHandler serves cached exchange rates, the rate history and manual
// refresh cycles.
type rateHandler struct {
	rateCache ports.RateCacheSvcFacade
	refresher ports.RefreshSvcFacade
}

func newRateHandler(rc ports.RateCacheSvcFacade, rs ports.RefreshSvcFacade) *rateHandler {
	return &rateHandler{rateCache: rc, refresher: rs}
}

func registerRateRoutes(rg *gin.RouterGroup, rateCache ports.RateCacheSvcFacade, refresher ports.RefreshSvcFacade) {
	h := newRateHandler(rateCache, refresher)

	rates := rg.Group("/rates")
	{
		rates.GET("/history", h.listHistory)
		rates.POST("/refresh", h.refresh)
		rates.GET("/:from/:to", h.getRate)
	}
}

func (h *rateHandler) getRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	from := c.Param("from")
	to := c.Param("to")

	entry, stale, err := h.rateCache.Get(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// A pair that was never observed is a 404, never a made-up rate.
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to get rate", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rate"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToRateResponse(entry, stale))
}

func (h *rateHandler) refresh(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var result any
	if source := c.Query("source"); source != "" {
		res, err := h.refresher.RunSource(c.Request.Context(), source)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			} else {
				logger.Error("Refresh failed", slog.String("error", err.Error()))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Refresh failed"})
			}
			return
		}
		result = res
	} else {
		result = h.refresher.RunOnce(c.Request.Context())
	}

	c.JSON(http.StatusOK, result)
}

func (h *rateHandler) listHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	from := c.Query("from")
	to := c.Query("to")
	if (from == "") != (to == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to must be provided together"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	records, err := h.rateCache.History(c.Request.Context(), from, to, limit)
	if err != nil {
		logger.Error("Failed to list rate history", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rate history"})
		return
	}

	c.JSON(http.StatusOK, records)
}
