package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"school_transport_echo/internal/services"
)

type AttendanceHandler struct {
	attendance *services.AttendanceService
}

func NewAttendanceHandler(attendance *services.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// SaveAttendance upserts a day's roll call and reports per-record results
func (h *AttendanceHandler) SaveAttendance(c echo.Context) error {
	var batch services.AttendanceBatch
	if err := c.Bind(&batch); err != nil {
		return errors.Wrap(err, "bind attendance")
	}
	results, err := h.attendance.SaveBatch(c.Request().Context(), batch)
	if err != nil {
		return err
	}

	saved := 0
	for _, r := range results {
		if r.Success {
			saved++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Attendance saved",
		"saved":   saved,
		"failed":  len(results) - saved,
		"results": results,
	})
}

func (h *AttendanceHandler) ListAttendance(c echo.Context) error {
	records, err := h.attendance.Find(c.Request().Context(), c.QueryParam("date"), c.QueryParam("routeId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}
