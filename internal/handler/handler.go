package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "taskforge/internal/errors"
	"taskforge/internal/response"
)

// fail maps a domain error onto the response envelope.
func fail(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return response.Error(c, httpErr.StatusCode, httpErr.Code, httpErr.Message)
}

// pathID parses the :id (or named) route parameter.
func pathID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
