package http

import (
	"net/http"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	"conference/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// SignalHandler exposes rtc_signal.create/update: trickle renegotiation of
// an already-connected AgentConnection's JSEP offer/answer exchange.
type SignalHandler struct {
	signals ports.SignalService
}

func NewSignalHandler(signals ports.SignalService) *SignalHandler {
	return &SignalHandler{signals: signals}
}

func (h *SignalHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/streams/signal", h.Create)
}

type signalRequest struct {
	RTCID string         `json:"rtc_id" binding:"required"`
	JSEP  map[string]any `json:"jsep" binding:"required"`
}

// Create handles the single POST /streams/signal route (spec §6): the
// initial SDP offer is signal.create, and later ICE trickle exchanges on
// the same rtc are signal.update — distinguished by JSEP shape, since a
// trickle candidate carries "candidate" instead of a full "sdp" body.
func (h *SignalHandler) Create(c *gin.Context) {
	var req signalRequest
	if err := c.BindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	rtcID, err := domain.ParseRTCID(req.RTCID)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	agentID, ok := middleware.AgentFromContext(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var (
		answer map[string]any
		svcErr error
	)
	if _, isTrickle := req.JSEP["candidate"]; isTrickle {
		answer, svcErr = h.signals.Update(c.Request.Context(), agentID, rtcID, req.JSEP)
	} else {
		answer, svcErr = h.signals.Create(c.Request.Context(), agentID, rtcID, req.JSEP)
	}
	if svcErr != nil {
		c.Error(svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jsep": answer})
}
