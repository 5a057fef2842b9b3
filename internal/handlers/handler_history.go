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

// historyHandler serves historical fixings of currencies and gold.
type historyHandler struct {
	marketData  portssvc.MarketDataReaderSvc
	instruments portssvc.InstrumentReaderSvc
}

func newHistoryHandler(md portssvc.MarketDataReaderSvc, is portssvc.InstrumentReaderSvc) *historyHandler {
	return &historyHandler{marketData: md, instruments: is}
}

// RegisterHistoryRoutes registers the /history routes.
func RegisterHistoryRoutes(rg *gin.RouterGroup, md portssvc.MarketDataReaderSvc, is portssvc.InstrumentReaderSvc) {
	h := newHistoryHandler(md, is)

	history := rg.Group("/history")
	{
		history.GET("/exchange-rate", h.getExchangeRate)
		history.GET("/exchange-rate-trend", h.getExchangeRateTrend)
		history.GET("/gold-price", h.getGoldPrice)
		history.GET("/gold-price-trend", h.getGoldPriceTrend)
	}
}

// getExchangeRate godoc
// @Summary Get a currency fixing on a date
// @Tags history
// @Produce  json
// @Param   currency query string true "Currency code (3 letters)"
// @Param   date     query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} dto.SingleValueResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 404 {object} map[string]string "Unknown currency or no rate"
// @Failure 503 {object} map[string]string "Lookup in progress elsewhere"
// @Security BearerAuth
// @Router /history/exchange-rate [get]
func (h *historyHandler) getExchangeRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var q dto.SingleRateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, logger, err)
		return
	}
	logger = logger.With(slog.String("currency", q.Currency), slog.String("date", q.Date))

	inst, err := h.instruments.GetInstrument(c.Request.Context(), q.Currency)
	if err != nil {
		respondError(c, logger, err, "Failed to resolve currency")
		return
	}
	date, err := domain.ParseDate(q.Date)
	if err != nil {
		respondError(c, logger, err, "Invalid date")
		return
	}

	value, err := h.marketData.GetSingle(c.Request.Context(), *inst, date)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve exchange rate")
		return
	}
	c.JSON(http.StatusOK, dto.ToSingleValueResponse(value, inst.Code))
}

// getExchangeRateTrend godoc
// @Summary Get currency fixings over a date range
// @Tags history
// @Produce  json
// @Param   currency query string true "Currency code (3 letters)"
// @Param   from     query string true "Start date (YYYY-MM-DD)"
// @Param   to       query string true "End date (YYYY-MM-DD), at most 93 days after from"
// @Success 200 {object} dto.TrendResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 404 {object} map[string]string "Unknown currency or no data"
// @Failure 422 {object} map[string]string "Range too large"
// @Failure 503 {object} map[string]string "Lookup in progress elsewhere"
// @Security BearerAuth
// @Router /history/exchange-rate-trend [get]
func (h *historyHandler) getExchangeRateTrend(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var q dto.RateTrendQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, logger, err)
		return
	}
	logger = logger.With(slog.String("currency", q.Currency), slog.String("from", q.From), slog.String("to", q.To))

	inst, err := h.instruments.GetInstrument(c.Request.Context(), q.Currency)
	if err != nil {
		respondError(c, logger, err, "Failed to resolve currency")
		return
	}
	h.writeTrend(c, logger, *inst, q.From, q.To, inst.Code)
}

// getGoldPrice godoc
// @Summary Get the gold price on a date
// @Tags history
// @Produce  json
// @Param   date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} dto.SingleValueResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 404 {object} map[string]string "No price"
// @Security BearerAuth
// @Router /history/gold-price [get]
func (h *historyHandler) getGoldPrice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var q dto.GoldPriceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, logger, err)
		return
	}
	date, err := domain.ParseDate(q.Date)
	if err != nil {
		respondError(c, logger, err, "Invalid date")
		return
	}

	value, err := h.marketData.GetSingle(c.Request.Context(), domain.GoldInstrument(), date)
	if err != nil {
		respondError(c, logger.With(slog.String("date", q.Date)), err, "Failed to retrieve gold price")
		return
	}
	c.JSON(http.StatusOK, dto.ToSingleValueResponse(value, ""))
}

// getGoldPriceTrend godoc
// @Summary Get gold prices over a date range
// @Tags history
// @Produce  json
// @Param   from query string true "Start date (YYYY-MM-DD)"
// @Param   to   query string true "End date (YYYY-MM-DD), at most 93 days after from"
// @Success 200 {object} dto.TrendResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 404 {object} map[string]string "No data"
// @Failure 422 {object} map[string]string "Range too large"
// @Security BearerAuth
// @Router /history/gold-price-trend [get]
func (h *historyHandler) getGoldPriceTrend(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var q dto.GoldTrendQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, logger, err)
		return
	}
	h.writeTrend(c, logger.With(slog.String("from", q.From), slog.String("to", q.To)), domain.GoldInstrument(), q.From, q.To, "")
}

func (h *historyHandler) writeTrend(c *gin.Context, logger *slog.Logger, inst domain.Instrument, from, to, currency string) {
	start, err := domain.ParseDate(from)
	if err != nil {
		respondError(c, logger, err, "Invalid date")
		return
	}
	end, err := domain.ParseDate(to)
	if err != nil {
		respondError(c, logger, err, "Invalid date")
		return
	}

	trend, err := h.marketData.GetTrend(c.Request.Context(), inst, start, end)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve trend")
		return
	}
	c.JSON(http.StatusOK, dto.ToTrendResponse(trend, currency))
}
