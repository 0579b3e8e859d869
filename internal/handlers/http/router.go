package http

import (
	"crypto/rsa"

	"conference/internal/infrastructure/middleware"
	"conference/internal/infrastructure/notify"
	"conference/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers bundles every route handler, assembled by cmd/server/main.go's DI
// wiring and handed to NewRouter.
type Handlers struct {
	Room   *RoomHandler
	RTC    *RTCHandler
	Signal *SignalHandler
	Config *ConfigHandler
	Group  *GroupHandler
	Stream *StreamHandler
	System *SystemHandler
}

// NewRouter assembles the full gin.Engine: middleware stack, versioned API
// group under /api/v1, the websocket subscribe endpoint backing notify.Hub,
// and the Prometheus scrape endpoint — grounded on the teacher's
// stream_handler.go SetupRoutes, generalized to a multi-handler API surface.
func NewRouter(cfg *config.Config, publicKey *rsa.PublicKey, h Handlers, hub *notify.Hub, logger *zap.SugaredLogger) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.RecoveryMiddleware(logger),
		middleware.TracingMiddleware(),
		middleware.NewHTTPRateLimitMiddleware(cfg),
		middleware.ErrorHandlerMiddleware(logger),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.System.RegisterRoutes(router, router.Group("/api/v1"))

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(publicKey, cfg.Auth.ClockSkew))

	h.Room.RegisterRoutes(api)
	h.RTC.RegisterRoutes(api)
	h.Signal.RegisterRoutes(api)
	h.Config.RegisterRoutes(api)
	h.Group.RegisterRoutes(api)
	h.Stream.RegisterRoutes(api)

	// The event feed is read-only and room audiences may include agents
	// without a signed bearer token (spec §4.1 Room.Audience), so
	// subscription uses optional auth and is kept out of the authed group.
	events := router.Group("/api/v1")
	events.Use(middleware.OptionalAuthMiddleware(publicKey, cfg.Auth.ClockSkew))
	events.GET("/rooms/:room_id/events", func(c *gin.Context) {
		topic := "rooms/" + c.Param("room_id") + "/events"
		hub.Subscribe(topic, c.Writer, c.Request)
	})
	events.GET("/audiences/:audience/events", func(c *gin.Context) {
		topic := "audiences/" + c.Param("audience") + "/events"
		hub.Subscribe(topic, c.Writer, c.Request)
	})

	return router
}
