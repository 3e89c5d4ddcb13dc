package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMessage(t *testing.T) {
	before := testutil.ToFloat64(messagesTotal.WithLabelValues("send", "error"))
	RecordMessage("send", errors.New("boom"))
	RecordMessage("send", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(messagesTotal.WithLabelValues("send", "error")))
}

func TestConnectionGauge(t *testing.T) {
	before := testutil.ToFloat64(wsConnections)
	ConnectionOpened()
	ConnectionOpened()
	ConnectionClosed()
	assert.Equal(t, before+1, testutil.ToFloat64(wsConnections))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordRateLimited("send_message")

	e := echo.New()
	e.GET("/metrics", Handler())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chat_rate_limited_total{action="send_message"}`)
}
