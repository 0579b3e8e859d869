package http

import (
	"net/http"
	"testing"

	"conference/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalHandler_CreateReturnsAnswer(t *testing.T) {
	svc := &fakeSignalService{answer: map[string]any{"type": "answer", "sdp": "v=0"}}
	agent := testAgent("a")
	r := newTestEngine(func(api *gin.RouterGroup) { NewSignalHandler(svc).RegisterRoutes(api) }, &agent)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/streams/signal",
		map[string]any{"rtc_id": domain.NewRTCID().String(), "jsep": map[string]any{"type": "offer", "sdp": "v=0"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.calledCreate)
	assert.False(t, svc.calledUpdate)

	var body map[string]any
	decodeJSON(t, rec, &body)
	jsep := body["jsep"].(map[string]any)
	assert.Equal(t, "answer", jsep["type"])
}

// TestSignalHandler_TrickleCandidateRoutesToUpdate covers spec §4.1's
// signal.update: a JSEP body carrying "candidate" instead of "sdp" is ICE
// trickle on an already-connected rtc, not a fresh offer.
func TestSignalHandler_TrickleCandidateRoutesToUpdate(t *testing.T) {
	svc := &fakeSignalService{answer: map[string]any{}}
	agent := testAgent("a")
	r := newTestEngine(func(api *gin.RouterGroup) { NewSignalHandler(svc).RegisterRoutes(api) }, &agent)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/streams/signal",
		map[string]any{"rtc_id": domain.NewRTCID().String(), "jsep": map[string]any{"candidate": "candidate:1 1 UDP..."}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.calledUpdate)
	assert.False(t, svc.calledCreate)
}

func TestSignalHandler_WithoutAgentIs401(t *testing.T) {
	svc := &fakeSignalService{}
	r := newTestEngine(func(api *gin.RouterGroup) { NewSignalHandler(svc).RegisterRoutes(api) }, nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/streams/signal",
		map[string]any{"rtc_id": domain.NewRTCID().String(), "jsep": map[string]any{"type": "offer"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignalHandler_MissingJSEPIs400(t *testing.T) {
	svc := &fakeSignalService{}
	agent := testAgent("a")
	r := newTestEngine(func(api *gin.RouterGroup) { NewSignalHandler(svc).RegisterRoutes(api) }, &agent)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/streams/signal",
		map[string]any{"rtc_id": domain.NewRTCID().String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignalHandler_MissingRTCIDIs400(t *testing.T) {
	svc := &fakeSignalService{}
	agent := testAgent("a")
	r := newTestEngine(func(api *gin.RouterGroup) { NewSignalHandler(svc).RegisterRoutes(api) }, &agent)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/streams/signal",
		map[string]any{"jsep": map[string]any{"type": "offer"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignalHandler_InvalidJSEPErrorMapsTo400(t *testing.T) {
	svc := &fakeSignalService{err: domain.NewError(domain.ErrInvalidJSEPFormat, "sdp field missing")}
	agent := testAgent("a")
	r := newTestEngine(func(api *gin.RouterGroup) { NewSignalHandler(svc).RegisterRoutes(api) }, &agent)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/streams/signal",
		map[string]any{"rtc_id": domain.NewRTCID().String(), "jsep": map[string]any{"type": "offer"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
