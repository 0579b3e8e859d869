package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"conference/internal/infrastructure/middleware"
	"conference/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSystemTestEngine(h *SystemHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	api := r.Group("/api/v1")
	h.RegisterRoutes(r, api)
	return r
}

func TestSystemHandler_VacuumReturnsReport(t *testing.T) {
	svc := &fakeVacuumService{}
	h := NewSystemHandler(svc, monitoring.NewHealthChecker())
	r := newSystemTestEngine(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/system/vacuum", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSystemHandler_HealthzHealthyWithNoChecks(t *testing.T) {
	h := NewSystemHandler(&fakeVacuumService{}, monitoring.NewHealthChecker())
	r := newSystemTestEngine(h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
}
