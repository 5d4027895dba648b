package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"school_transport_echo/internal/ledger"
	"school_transport_echo/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PaymentHandler struct {
	payments  *services.PaymentService
	writeXLSX func(io.Writer, []ledger.YearGroup) error
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments, writeXLSX: services.WritePaymentsXLSX}
}

// CreatePayment records a payment and returns it with its balance snapshot
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var in services.NewPayment
	if err := c.Bind(&in); err != nil {
		return errors.Wrap(err, "bind payment")
	}
	payment, err := h.payments.RecordPayment(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, payment)
}

// ListPayments lists payments newest first. ?reload=true bypasses the cache.
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	filter, err := paymentFilterFromQuery(c)
	if err != nil {
		return err
	}
	payments, err := h.payments.ListPayments(c.Request().Context(), filter, reloadRequested(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payments)
}

// Summary returns payments grouped by year, term and student with live balances
func (h *PaymentHandler) Summary(c echo.Context) error {
	filter, err := paymentFilterFromQuery(c)
	if err != nil {
		return err
	}
	summary, err := h.payments.Summary(c.Request().Context(), filter, reloadRequested(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// Export sends the grouped summary as an XLSX file
func (h *PaymentHandler) Export(c echo.Context) error {
	filter, err := paymentFilterFromQuery(c)
	if err != nil {
		return err
	}
	summary, err := h.payments.Summary(c.Request().Context(), filter, reloadRequested(c))
	if err != nil {
		return err
	}

	// rendered in full before any header goes out so a failure is still a 500
	var buf bytes.Buffer
	if err := h.writeXLSX(&buf, summary); err != nil {
		return errors.Wrap(err, "write xlsx")
	}

	fileName := fmt.Sprintf("transport_payments_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *PaymentHandler) DeletePayment(c echo.Context) error {
	if err := h.payments.DeletePayment(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
