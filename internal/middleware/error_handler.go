package middleware

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"school_transport_echo/internal/services"
)

// CustomErrorHandler maps service errors to JSON responses:
// ValidationError → 400 with a field map, NotFoundError → 404, anything else → 500.
func CustomErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	body := echo.Map{"error": http.StatusText(http.StatusInternalServerError)}

	var (
		vErr  *services.ValidationError
		vErrs validator.ValidationErrors
		nfErr *services.NotFoundError
		he    *echo.HTTPError
	)
	switch {
	case errors.As(err, &vErr):
		code = http.StatusBadRequest
		body = echo.Map{"error": vErr.Error()}
		if len(vErr.Fields) > 0 {
			body["fields"] = vErr.FieldMap()
		}
	case errors.As(err, &vErrs):
		code = http.StatusBadRequest
		fields := make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			fields[fe.Field()] = fe.Translate(services.Translator)
		}
		body = echo.Map{"error": "validation failed", "fields": fields}
	case errors.As(err, &nfErr):
		code = http.StatusNotFound
		body = echo.Map{"error": nfErr.Error()}
	case errors.As(err, &he):
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			body = echo.Map{"error": msg}
		} else {
			body = echo.Map{"error": http.StatusText(code)}
		}
		if code >= http.StatusInternalServerError {
			c.Logger().Error(err)
		}
	default:
		// store failures and anything unexpected
		c.Logger().Error(err)
	}

	if c.Echo().Debug && code >= http.StatusInternalServerError {
		body["detail"] = err.Error()
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
