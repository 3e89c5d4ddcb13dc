package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetLimitParam reads the "limit" query parameter. A missing, malformed or
// non-positive value yields 0 so the caller's default applies; values above
// max are clamped.
func GetLimitParam(c echo.Context, max int) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
