package http

import (
	"net/http"
	"strconv"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	"conference/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// GroupHandler exposes group.update/list over /rooms/{id}/groups.
type GroupHandler struct {
	groups ports.GroupService
}

func NewGroupHandler(groups ports.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func (h *GroupHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/rooms/:room_id/groups", h.Update)
	api.GET("/rooms/:room_id/groups", h.List)
}

type groupAgentDTO struct {
	AgentID string `json:"agent_id" binding:"required"`
	Number  int    `json:"number"`
}

type updateGroupsRequest struct {
	Groups []groupAgentDTO `json:"groups" binding:"required,dive"`
}

func (h *GroupHandler) Update(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var req updateGroupsRequest
	if err := c.BindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	by, ok := middleware.AgentFromContext(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	groups := make([]domain.GroupAgent, 0, len(req.Groups))
	for _, g := range req.Groups {
		groups = append(groups, domain.GroupAgent{
			RoomID:  roomID,
			AgentID: domain.AgentID{Label: g.AgentID},
			Number:  g.Number,
		})
	}

	if err := h.groups.Update(c.Request.Context(), by, roomID, groups); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *GroupHandler) List(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var withinGroup *int
	if raw := c.Query("within_group"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		withinGroup = &n
	}

	groups, err := h.groups.List(c.Request.Context(), roomID, withinGroup)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}
