package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// notFound builds the 404 for an unknown research id.
func notFound(id string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, "research "+id+" not found")
}

// validationError builds a 422 for a malformed research request.
func validationError(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, message)
}
