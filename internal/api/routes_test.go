package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/dcalab-go/internal/api/handlers"
)

func TestSetupRoutesHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	backtest := handlers.NewBacktestHandler(nil, nil, nil, nil, nil, nil, logrus.New())
	SetupRoutes(router, backtest, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "not configured", resp.Services.Database)
	assert.Equal(t, "not configured", resp.Services.Redis)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestSetupRoutesUnknownPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	backtest := handlers.NewBacktestHandler(nil, nil, nil, nil, nil, nil, logrus.New())
	SetupRoutes(router, backtest, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
