package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGetLimitParam(t *testing.T) {
	e := echo.New()
	tests := []struct {
		query string
		want  int
	}{
		{"", 0},
		{"?limit=abc", 0},
		{"?limit=-3", 0},
		{"?limit=25", 25},
		{"?limit=500", 100},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		assert.Equal(t, tt.want, GetLimitParam(c, 100), tt.query)
	}
}
