package http

import (
	"net/http"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	"conference/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// ConfigHandler exposes C7's agent_writer_config.* and agent_reader_config.*
// over /rooms/{id}/configs.
type ConfigHandler struct {
	configs ports.ConfigService
}

func NewConfigHandler(configs ports.ConfigService) *ConfigHandler {
	return &ConfigHandler{configs: configs}
}

func (h *ConfigHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/rooms/:room_id/configs/writer", h.ReadWriterConfig)
	api.POST("/rooms/:room_id/configs/writer", h.UpdateWriterConfig)
	api.GET("/rooms/:room_id/configs/writer/snapshot", h.ReadWriterConfigSnapshots)
	api.GET("/rooms/:room_id/configs/reader", h.ReadReaderConfig)
	api.POST("/rooms/:room_id/configs/reader", h.UpdateReaderConfig)
}

type writerConfigDeltaDTO struct {
	RTCID     string `json:"rtc_id" binding:"required"`
	SendVideo *bool  `json:"send_video"`
	SendAudio *bool  `json:"send_audio"`
	VideoRemb *int64 `json:"video_remb"`
}

func (h *ConfigHandler) ReadWriterConfig(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	configs, err := h.configs.ReadWriterConfig(c.Request.Context(), roomID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

func (h *ConfigHandler) UpdateWriterConfig(c *gin.Context) {
	var req writerConfigDeltaDTO
	if err := c.BindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	rtcID, err := domain.ParseRTCID(req.RTCID)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	by, ok := middleware.AgentFromContext(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	cfg, err := h.configs.UpdateWriterConfig(c.Request.Context(), by, rtcID, domain.WriterConfigDelta{
		SendVideo: req.SendVideo,
		SendAudio: req.SendAudio,
		VideoRemb: req.VideoRemb,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) ReadWriterConfigSnapshots(c *gin.Context) {
	rtcID, err := domain.ParseRTCID(c.Query("rtc_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	snapshots, err := h.configs.ReadWriterConfigSnapshots(c.Request.Context(), rtcID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

func (h *ConfigHandler) ReadReaderConfig(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	agentID, ok := middleware.AgentFromContext(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	configs, err := h.configs.ReadReaderConfig(c.Request.Context(), roomID, agentID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

type readerConfigDeltaDTO struct {
	RTCID         string `json:"rtc_id" binding:"required"`
	ReaderAgentID string `json:"reader_agent_id" binding:"required"`
	ReceiveVideo  *bool  `json:"receive_video"`
	ReceiveAudio  *bool  `json:"receive_audio"`
}

type updateReaderConfigRequest struct {
	Configs []readerConfigDeltaDTO `json:"configs" binding:"required,dive"`
}

func (h *ConfigHandler) UpdateReaderConfig(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var req updateReaderConfigRequest
	if err := c.BindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	by, ok := middleware.AgentFromContext(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	deltas := make([]domain.ReaderConfigDelta, 0, len(req.Configs))
	for _, d := range req.Configs {
		rtcID, err := domain.ParseRTCID(d.RTCID)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		deltas = append(deltas, domain.ReaderConfigDelta{
			RTCID:         rtcID,
			ReaderAgentID: domain.AgentID{Label: d.ReaderAgentID},
			ReceiveVideo:  d.ReceiveVideo,
			ReceiveAudio:  d.ReceiveAudio,
		})
	}

	configs, err := h.configs.UpdateReaderConfig(c.Request.Context(), by, roomID, deltas)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": configs})
}
