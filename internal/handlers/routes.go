package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"school_transport_echo/internal/services"
)

// Deps are the services the HTTP API is built from
type Deps struct {
	Store      services.Store
	Payments   *services.PaymentService
	Attendance *services.AttendanceService
	Stats      *services.StatsService
}

// Register mounts every API route on e
func Register(e *echo.Echo, d Deps) {
	paymentHandler := NewPaymentHandler(d.Payments)
	feeHandler := NewFeeHandler(d.Payments)
	attendanceHandler := NewAttendanceHandler(d.Attendance)
	directoryHandler := NewDirectoryHandler(d.Store)
	statsHandler := NewStatsHandler(d.Stats)

	api := e.Group("/api")
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "store": d.Store.Name()})
	})
	api.GET("/students", directoryHandler.ListStudents)
	api.GET("/stats/transport", statsHandler.Transport)

	transport := api.Group("/transport")

	// Payment routes
	transport.POST("/payments", paymentHandler.CreatePayment)
	transport.GET("/payments", paymentHandler.ListPayments)
	transport.GET("/payments/summary", paymentHandler.Summary)
	transport.GET("/payments/export", paymentHandler.Export)
	transport.DELETE("/payments/:id", paymentHandler.DeletePayment)

	// Fee routes
	transport.POST("/fees", feeHandler.UpsertFee)
	transport.GET("/fees", feeHandler.ListFees)
	transport.DELETE("/fees/:id", feeHandler.DeleteFee)

	transport.GET("/routes", directoryHandler.ListRoutes)

	transport.POST("/attendance", attendanceHandler.SaveAttendance)
	transport.GET("/attendance", attendanceHandler.ListAttendance)
}
