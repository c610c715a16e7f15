package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"StockPull/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/ok", func(c echo.Context) error { return SuccessResponse(c, map[string]string{"a": "b"}) })
	e.GET("/conflict", func(c echo.Context) error {
		return NewAppError("ERR_CONFLICT", "ticker", "already running", http.StatusConflict)
	})
	e.GET("/boom", func(c echo.Context) error { return errors.New("db exploded") })
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerEnvelopes(t *testing.T) {
	s := NewServer(logger.NewNop(), []Handler{routes{}}, WithPort(0), WithCORS(false))

	rec := serve(s, "/ok")
	require.Equal(t, http.StatusOK, rec.Code)
	var ok APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, "OK", ok.Message)

	rec = serve(s, "/conflict")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_CONFLICT")

	rec = serve(s, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
	assert.NotContains(t, rec.Body.String(), "db exploded")

	rec = serve(s, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_HTTP_404")
}

func TestServerMetricsPath(t *testing.T) {
	s := NewServer(logger.NewNop(), nil, WithMetricsPath("/metrics"))
	serve(s, "/metrics")
	// the first scrape is only counted once it has been served
	rec := serve(s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockpull_http_requests_total")

	s = NewServer(logger.NewNop(), nil, WithMetricsPath(""))
	assert.Equal(t, http.StatusNotFound, serve(s, "/metrics").Code)
}

func TestServerExtraMiddleware(t *testing.T) {
	called := false
	s := NewServer(logger.NewNop(), []Handler{routes{}}, WithMiddleware(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			called = true
			return next(c)
		}
	}))
	serve(s, "/ok")
	assert.True(t, called)
}
