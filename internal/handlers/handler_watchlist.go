package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	portssvc "github.com/SscSPs/rates_tracker_app/internal/core/ports/services"
	"github.com/SscSPs/rates_tracker_app/internal/dto"
	"github.com/SscSPs/rates_tracker_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// DashboardGoldDays is the default length of the dashboard gold chart.
const DashboardGoldDays = 10

// watchlistHandler serves the caller's watchlist and dashboard.
type watchlistHandler struct {
	watchlist  portssvc.WatchlistSvcFacade
	marketData portssvc.MarketDataReaderSvc
}

// RegisterWatchlistRoutes registers /watchlist and /dashboard.
func RegisterWatchlistRoutes(rg *gin.RouterGroup, ws portssvc.WatchlistSvcFacade, md portssvc.MarketDataReaderSvc) {
	h := &watchlistHandler{watchlist: ws, marketData: md}

	rg.GET("/dashboard", h.getDashboard)
	watchlist := rg.Group("/watchlist")
	{
		watchlist.GET("", h.listCards)
		watchlist.POST("", h.follow)
		watchlist.DELETE("/:code", h.unfollow)
	}
}

func (h *watchlistHandler) userID(c *gin.Context, logger *slog.Logger) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}

// getDashboard godoc
// @Summary Dashboard data
// @Description Recent gold prices and one card per followed instrument.
// @Tags watchlist
// @Produce  json
// @Param   days query int false "Gold chart length" default(10)
// @Success 200 {object} dto.DashboardResponse
// @Security BearerAuth
// @Router /dashboard [get]
func (h *watchlistHandler) getDashboard(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := h.userID(c, logger)
	if !ok {
		return
	}
	q := dto.RecentQuery{Days: DashboardGoldDays}
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, logger, err)
		return
	}

	cards, err := h.watchlist.GetWatchlistCards(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, err, "Failed to load watchlist")
		return
	}

	gold := []dto.GoldChartPoint{}
	points, err := h.marketData.GetRecent(c.Request.Context(), domain.GoldInstrument(), q.Days)
	if err != nil {
		logger.Warn("Gold chart unavailable", slog.String("error", err.Error()))
	} else {
		gold = dto.ToGoldChart(points)
	}

	c.JSON(http.StatusOK, dto.DashboardResponse{
		GoldPrices: gold,
		Watchlist:  dto.ToListWatchlistCardResponse(cards),
	})
}

// listCards godoc
// @Summary Watchlist cards
// @Tags watchlist
// @Produce  json
// @Success 200 {array} dto.WatchlistCardResponse
// @Security BearerAuth
// @Router /watchlist [get]
func (h *watchlistHandler) listCards(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := h.userID(c, logger)
	if !ok {
		return
	}
	cards, err := h.watchlist.GetWatchlistCards(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, err, "Failed to load watchlist")
		return
	}
	c.JSON(http.StatusOK, dto.ToListWatchlistCardResponse(cards))
}

// follow godoc
// @Summary Follow an instrument
// @Tags watchlist
// @Accept  json
// @Produce  json
// @Param   body body dto.FollowInstrumentRequest true "Instrument to follow"
// @Success 201 {object} dto.InstrumentResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Instrument not found"
// @Security BearerAuth
// @Router /watchlist [post]
func (h *watchlistHandler) follow(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := h.userID(c, logger)
	if !ok {
		return
	}
	var req dto.FollowInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}

	inst, err := h.watchlist.Follow(c.Request.Context(), userID, req.InstrumentCode)
	if err != nil {
		respondError(c, logger.With(slog.String("code", req.InstrumentCode)), err, "Failed to follow instrument")
		return
	}
	c.JSON(http.StatusCreated, dto.ToInstrumentResponse(inst))
}

// unfollow godoc
// @Summary Unfollow an instrument
// @Tags watchlist
// @Param   code path string true "Instrument code"
// @Success 204
// @Failure 404 {object} map[string]string "Not on the watchlist"
// @Security BearerAuth
// @Router /watchlist/{code} [delete]
func (h *watchlistHandler) unfollow(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("code", c.Param("code")))
	userID, ok := h.userID(c, logger)
	if !ok {
		return
	}
	if err := h.watchlist.Unfollow(c.Request.Context(), userID, c.Param("code")); err != nil {
		respondError(c, logger, err, "Failed to unfollow instrument")
		return
	}
	c.Status(http.StatusNoContent)
}
