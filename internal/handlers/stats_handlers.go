package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"school_transport_echo/internal/services"
)

type StatsHandler struct {
	stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Transport returns ledger totals, optionally narrowed by ?year= and ?term=
func (h *StatsHandler) Transport(c echo.Context) error {
	filter, err := paymentFilterFromQuery(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.Transport(c.Request().Context(), filter.Year, filter.Term)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
