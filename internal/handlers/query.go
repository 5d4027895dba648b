package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"school_transport_echo/internal/models"
	"school_transport_echo/internal/services"
)

// paymentFilterFromQuery reads term, year, studentId and routeId
func paymentFilterFromQuery(c echo.Context) (models.PaymentFilter, error) {
	filter := models.PaymentFilter{
		StudentID: c.QueryParam("studentId"),
		RouteID:   c.QueryParam("routeId"),
	}
	var fields []services.FieldError

	if termStr := c.QueryParam("term"); termStr != "" {
		filter.Term = models.Term(termStr)
		if !filter.Term.Valid() {
			fields = append(fields, services.FieldError{Field: "term", Error: "term must be one of Term 1, Term 2, Term 3"})
		}
	}
	if yearStr := c.QueryParam("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil || year <= 0 {
			fields = append(fields, services.FieldError{Field: "year", Error: "year must be a positive number"})
		}
		filter.Year = year
	}

	if len(fields) > 0 {
		return filter, &services.ValidationError{Fields: fields}
	}
	return filter, nil
}

func reloadRequested(c echo.Context) bool {
	v, _ := strconv.ParseBool(c.QueryParam("reload"))
	return v
}
