package http

import (
	"net/http"
	"strconv"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	"conference/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// RoomHandler exposes room.* over /api/v1/rooms, grounded on the teacher's
// stream_handler.go request/response shape (bind, call service, JSON the
// result or defer the error to ErrorHandlerMiddleware via c.Error).
type RoomHandler struct {
	rooms ports.RoomService
}

func NewRoomHandler(rooms ports.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

func (h *RoomHandler) RegisterRoutes(api *gin.RouterGroup) {
	rooms := api.Group("/rooms")
	rooms.POST("", h.Create)
	rooms.GET("/:room_id", h.Read)
	rooms.PATCH("/:room_id", h.Update)
	rooms.POST("/:room_id/close", h.Close)
	rooms.POST("/:room_id/enter", h.Enter)
	rooms.POST("/:room_id/leave", h.Leave)
	rooms.GET("/:room_id/agents", h.ListAgents)
}

type createRoomRequest struct {
	ClassroomID      string         `json:"classroom_id" binding:"required"`
	Audience         string         `json:"audience" binding:"required"`
	Time             timeRangeDTO   `json:"time" binding:"required"`
	RTCSharingPolicy string         `json:"rtc_sharing_policy" binding:"required"`
	Reserve          *int           `json:"reserve"`
	Tags             map[string]any `json:"tags"`
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.BindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	classroomID, err := domain.ParseClassroomID(req.ClassroomID)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	timeRange, err := req.Time.toDomain()
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	by, _ := middleware.AgentFromContext(c)
	room, err := h.rooms.Create(c.Request.Context(), by, ports.RoomCreateInput{
		ClassroomID:      classroomID,
		Audience:         req.Audience,
		Time:             timeRange,
		RTCSharingPolicy: domain.RTCSharingPolicy(req.RTCSharingPolicy),
		Reserve:          req.Reserve,
		Tags:             req.Tags,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, roomDTOFrom(room))
}

func (h *RoomHandler) Read(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	room, err := h.rooms.Read(c.Request.Context(), roomID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, roomDTOFrom(room))
}

type updateRoomRequest struct {
	Time    *timeRangeDTO  `json:"time"`
	Reserve *int           `json:"reserve"`
	Tags    map[string]any `json:"tags"`
}

func (h *RoomHandler) Update(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var req updateRoomRequest
	if err := c.BindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	in := ports.RoomUpdateInput{Reserve: req.Reserve, Tags: req.Tags}
	if req.Time != nil {
		tr, err := req.Time.toDomain()
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		in.Time = &tr
	}

	by, _ := middleware.AgentFromContext(c)
	room, err := h.rooms.Update(c.Request.Context(), by, roomID, in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, roomDTOFrom(room))
}

func (h *RoomHandler) Close(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	by, _ := middleware.AgentFromContext(c)
	room, err := h.rooms.Close(c.Request.Context(), by, roomID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, roomDTOFrom(room))
}

func (h *RoomHandler) Enter(c *gin.Context) {
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
	if err := h.rooms.Enter(c.Request.Context(), agentID, roomID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "entered"})
}

func (h *RoomHandler) Leave(c *gin.Context) {
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
	if err := h.rooms.Leave(c.Request.Context(), agentID, roomID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (h *RoomHandler) ListAgents(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	offset, limit := pagination(c)
	agents, err := h.rooms.ListAgents(c.Request.Context(), roomID, offset, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset"))
	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
