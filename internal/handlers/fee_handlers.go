package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"school_transport_echo/internal/services"
)

type FeeHandler struct {
	payments *services.PaymentService
}

func NewFeeHandler(payments *services.PaymentService) *FeeHandler {
	return &FeeHandler{payments: payments}
}

// UpsertFee creates or replaces the fee of a route
func (h *FeeHandler) UpsertFee(c echo.Context) error {
	var in services.NewFee
	if err := c.Bind(&in); err != nil {
		return errors.Wrap(err, "bind fee")
	}
	fee, err := h.payments.UpsertFee(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fee)
}

func (h *FeeHandler) ListFees(c echo.Context) error {
	fees, err := h.payments.ListFees(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fees)
}

func (h *FeeHandler) DeleteFee(c echo.Context) error {
	if err := h.payments.DeleteFee(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
