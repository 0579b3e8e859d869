package http

import (
	"net/http"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// StreamHandler exposes rtc_stream.list over /rooms/{id}/streams.
type StreamHandler struct {
	streams ports.StreamQueryService
}

func NewStreamHandler(streams ports.StreamQueryService) *StreamHandler {
	return &StreamHandler{streams: streams}
}

func (h *StreamHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/rooms/:room_id/streams", h.List)
}

func (h *StreamHandler) List(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var rtcID *domain.RTCID
	if raw := c.Query("rtc_id"); raw != "" {
		id, err := domain.ParseRTCID(raw)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		rtcID = &id
	}

	var window *domain.TimeRange
	if lower := c.Query("time_lower"); lower != "" {
		lt, err := time.Parse(time.RFC3339, lower)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		tr := domain.TimeRange{Lower: lt}
		if upper := c.Query("time_upper"); upper != "" {
			ut, err := time.Parse(time.RFC3339, upper)
			if err != nil {
				respondBadRequest(c, err)
				return
			}
			tr.Upper = &ut
		}
		window = &tr
	}

	offset, limit := pagination(c)
	streams, err := h.streams.ListStreams(c.Request.Context(), roomID, rtcID, window, offset, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}
