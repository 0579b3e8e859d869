package http

import (
	"net/http"
	"testing"

	"conference/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHandler_ReadWriterConfig(t *testing.T) {
	svc := &fakeConfigService{writerConfigs: []*domain.RtcWriterConfig{{SendVideo: true}}}
	r := newTestEngine(func(api *gin.RouterGroup) { NewConfigHandler(svc).RegisterRoutes(api) }, nil)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/rooms/"+domain.NewRoomID().String()+"/configs/writer", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Len(t, body["configs"], 1)
}

func TestConfigHandler_UpdateWriterConfigWithoutAgentIs401(t *testing.T) {
	svc := &fakeConfigService{}
	r := newTestEngine(func(api *gin.RouterGroup) { NewConfigHandler(svc).RegisterRoutes(api) }, nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+domain.NewRoomID().String()+"/configs/writer",
		map[string]any{"rtc_id": domain.NewRTCID().String(), "send_video": false})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConfigHandler_UpdateWriterConfigSucceeds(t *testing.T) {
	remb := int64(500000)
	svc := &fakeConfigService{writerConfig: &domain.RtcWriterConfig{SendVideo: true, VideoRemb: &remb}}
	agent := testAgent("a")
	r := newTestEngine(func(api *gin.RouterGroup) { NewConfigHandler(svc).RegisterRoutes(api) }, &agent)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+domain.NewRoomID().String()+"/configs/writer",
		map[string]any{"rtc_id": domain.NewRTCID().String(), "send_video": true, "video_remb": 500000})
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg domain.RtcWriterConfig
	decodeJSON(t, rec, &cfg)
	assert.True(t, cfg.SendVideo)
	require.NotNil(t, cfg.VideoRemb)
	assert.EqualValues(t, 500000, *cfg.VideoRemb)
}

func TestConfigHandler_UpdateWriterConfigMissingRTCIDIs400(t *testing.T) {
	svc := &fakeConfigService{}
	agent := testAgent("a")
	r := newTestEngine(func(api *gin.RouterGroup) { NewConfigHandler(svc).RegisterRoutes(api) }, &agent)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+domain.NewRoomID().String()+"/configs/writer",
		map[string]any{"send_video": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigHandler_ReadWriterConfigSnapshots(t *testing.T) {
	svc := &fakeConfigService{snapshots: []*domain.WriterConfigSnapshot{{}}}
	r := newTestEngine(func(api *gin.RouterGroup) { NewConfigHandler(svc).RegisterRoutes(api) }, nil)

	rec := doJSON(t, r, http.MethodGet,
		"/api/v1/rooms/"+domain.NewRoomID().String()+"/configs/writer/snapshot?rtc_id="+domain.NewRTCID().String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestConfigHandler_ReadReaderConfigWithoutAgentIs401(t *testing.T) {
	svc := &fakeConfigService{}
	r := newTestEngine(func(api *gin.RouterGroup) { NewConfigHandler(svc).RegisterRoutes(api) }, nil)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/rooms/"+domain.NewRoomID().String()+"/configs/reader", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConfigHandler_UpdateReaderConfigParsesEachDelta(t *testing.T) {
	svc := &fakeConfigService{readerConfigs: []*domain.RtcReaderConfig{{}}}
	agent := testAgent("a")
	r := newTestEngine(func(api *gin.RouterGroup) { NewConfigHandler(svc).RegisterRoutes(api) }, &agent)

	body := map[string]any{
		"configs": []map[string]any{
			{"rtc_id": domain.NewRTCID().String(), "reader_agent_id": "reader-1", "receive_video": true},
		},
	}
	rec := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+domain.NewRoomID().String()+"/configs/reader", body)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestConfigHandler_UpdateReaderConfigBadRTCIDIs400(t *testing.T) {
	svc := &fakeConfigService{}
	agent := testAgent("a")
	r := newTestEngine(func(api *gin.RouterGroup) { NewConfigHandler(svc).RegisterRoutes(api) }, &agent)

	body := map[string]any{
		"configs": []map[string]any{
			{"rtc_id": "not-a-uuid", "reader_agent_id": "reader-1"},
		},
	}
	rec := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+domain.NewRoomID().String()+"/configs/reader", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
