package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/rates_tracker_app/internal/core/ports/services"
	"github.com/SscSPs/rates_tracker_app/internal/dto"
	"github.com/SscSPs/rates_tracker_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// instrumentHandler serves the instrument catalog.
type instrumentHandler struct {
	instruments portssvc.InstrumentReaderSvc
	marketData  portssvc.MarketDataReaderSvc
}

// RegisterInstrumentRoutes registers the /instruments routes.
func RegisterInstrumentRoutes(rg *gin.RouterGroup, is portssvc.InstrumentReaderSvc, md portssvc.MarketDataReaderSvc) {
	h := &instrumentHandler{instruments: is, marketData: md}

	instruments := rg.Group("/instruments")
	{
		instruments.GET("", h.listInstruments)
		instruments.GET("/:code", h.getInstrument)
		instruments.GET("/:code/current", h.getCurrent)
	}
}

// listInstruments godoc
// @Summary List tracked instruments
// @Tags instruments
// @Produce  json
// @Success 200 {array} dto.InstrumentResponse
// @Security BearerAuth
// @Router /instruments [get]
func (h *instrumentHandler) listInstruments(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	insts, err := h.instruments.ListInstruments(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "Failed to list instruments")
		return
	}
	c.JSON(http.StatusOK, dto.ToListInstrumentResponse(insts))
}

// getInstrument godoc
// @Summary Get an instrument
// @Tags instruments
// @Produce  json
// @Param   code path string true "Instrument code"
// @Success 200 {object} dto.InstrumentResponse
// @Failure 404 {object} map[string]string "Instrument not found"
// @Security BearerAuth
// @Router /instruments/{code} [get]
func (h *instrumentHandler) getInstrument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("code", c.Param("code")))
	inst, err := h.instruments.GetInstrument(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, logger, err, "Failed to get instrument")
		return
	}
	c.JSON(http.StatusOK, dto.ToInstrumentResponse(inst))
}

// getCurrent godoc
// @Summary Get the current value of an instrument
// @Description Today's value when known; otherwise the latest known value with error set.
// @Tags instruments
// @Produce  json
// @Param   code path string true "Instrument code"
// @Success 200 {object} dto.CurrentValueResponse
// @Failure 404 {object} map[string]string "Instrument not found"
// @Security BearerAuth
// @Router /instruments/{code}/current [get]
func (h *instrumentHandler) getCurrent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("code", c.Param("code")))
	inst, err := h.instruments.GetInstrument(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, logger, err, "Failed to get instrument")
		return
	}
	cv, err := h.marketData.GetCurrent(c.Request.Context(), *inst)
	if err != nil {
		respondError(c, logger, err, "Failed to get current value")
		return
	}
	c.JSON(http.StatusOK, dto.ToCurrentValueResponse(*inst, *cv))
}
