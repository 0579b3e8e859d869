package http

import (
	"net/http"

	"conference/internal/core/ports"
	"conference/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
)

// SystemHandler exposes system.vacuum and the liveness endpoint.
type SystemHandler struct {
	vacuum ports.VacuumService
	health *monitoring.HealthChecker
}

func NewSystemHandler(vacuum ports.VacuumService, health *monitoring.HealthChecker) *SystemHandler {
	return &SystemHandler{vacuum: vacuum, health: health}
}

func (h *SystemHandler) RegisterRoutes(router gin.IRoutes, api *gin.RouterGroup) {
	api.POST("/system/vacuum", h.Vacuum)
	router.GET("/healthz", h.Healthz)
}

func (h *SystemHandler) Vacuum(c *gin.Context) {
	report, err := h.vacuum.Run(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rooms_closed":      report.RoomsClosed,
		"uploads_requested": report.UploadsRequested,
		"orphans_closed":    report.OrphansClosed,
		"ran":               report.Ran,
	})
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
