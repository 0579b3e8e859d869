package http

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"conference/internal/core/domain"
	"conference/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestEngine wires ErrorHandlerMiddleware so handler tests observe the
// same RFC 7807 status/body mapping production traffic gets, without
// needing the real auth stack — register injects an agent identity
// directly into the gin context the way AuthMiddleware would.
func newTestEngine(register func(api *gin.RouterGroup), agent *domain.AgentID) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	if agent != nil {
		r.Use(func(c *gin.Context) {
			c.Set("agent_id", *agent)
			c.Next()
		})
	}
	api := r.Group("/api/v1")
	register(api)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}
