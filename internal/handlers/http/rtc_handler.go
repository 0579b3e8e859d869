package http

import (
	"net/http"
	"strings"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	"conference/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// RTCHandler exposes rtc.* over /rooms/{id}/rtcs and /rtcs/{id}.
type RTCHandler struct {
	rtcs ports.RTCService
}

func NewRTCHandler(rtcs ports.RTCService) *RTCHandler {
	return &RTCHandler{rtcs: rtcs}
}

func (h *RTCHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/rooms/:room_id/rtcs", h.Create)
	api.GET("/rooms/:room_id/rtcs", h.List)
	api.GET("/rtcs/:rtc_id", h.Read)
	api.POST("/rtcs/:rtc_id/streams", h.Connect)
}

func (h *RTCHandler) Create(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	by, ok := middleware.AgentFromContext(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	rtc, err := h.rtcs.Create(c.Request.Context(), by, roomID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rtcDTOFrom(rtc))
}

func (h *RTCHandler) List(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	rtcs, err := h.rtcs.List(c.Request.Context(), roomID)
	if err != nil {
		c.Error(err)
		return
	}
	dtos := make([]rtcDTO, 0, len(rtcs))
	for _, r := range rtcs {
		dtos = append(dtos, rtcDTOFrom(r))
	}
	c.JSON(http.StatusOK, gin.H{"rtcs": dtos})
}

func (h *RTCHandler) Read(c *gin.Context) {
	rtcID, err := domain.ParseRTCID(c.Param("rtc_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	rtc, err := h.rtcs.Read(c.Request.Context(), rtcID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rtcDTOFrom(rtc))
}

type connectRequest struct {
	Intent string `json:"intent" binding:"required,oneof=read write"`
	Label  string `json:"label"`
	SDP    string `json:"sdp"`
}

func (h *RTCHandler) Connect(c *gin.Context) {
	rtcID, err := domain.ParseRTCID(c.Param("rtc_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var req connectRequest
	if err := c.BindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	agentID, ok := middleware.AgentFromContext(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	result, err := h.rtcs.Connect(c.Request.Context(), agentID, rtcID, domain.Intent(req.Intent), req.Label, classifySDP(req.SDP))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"handle_id":  result.Connection.HandleID,
		"backend_id": result.Backend.ID.String(),
		"status":     string(result.Connection.Status),
	})
}

// classifySDP reads only the direction attribute off an offer, per spec §1
// Non-goals ("SDP parsing semantics beyond classifying direction") — no
// session description is otherwise inspected or stored.
func classifySDP(sdp string) ports.SDPKind {
	switch {
	case strings.Contains(sdp, "a=sendonly"):
		return ports.SDPSendOnly
	case strings.Contains(sdp, "a=recvonly"):
		return ports.SDPRecvOnly
	case strings.Contains(sdp, "a=sendrecv"):
		return ports.SDPSendRecv
	default:
		return ports.SDPUnknown
	}
}
