package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"school_transport_echo/internal/services"
)

// DirectoryHandler serves the read-only student and route listings
type DirectoryHandler struct {
	directory services.Directory
}

func NewDirectoryHandler(directory services.Directory) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

func (h *DirectoryHandler) ListStudents(c echo.Context) error {
	students, err := h.directory.ListStudents(c.Request().Context())
	if err != nil {
		return &services.StoreError{Op: "list students", Err: err}
	}
	return c.JSON(http.StatusOK, students)
}

func (h *DirectoryHandler) ListRoutes(c echo.Context) error {
	routes, err := h.directory.ListRoutes(c.Request().Context())
	if err != nil {
		return &services.StoreError{Op: "list routes", Err: err}
	}
	return c.JSON(http.StatusOK, routes)
}
