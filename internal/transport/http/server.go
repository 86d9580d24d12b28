package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/qazaqedu/iquiz-server/internal/auth"
	"github.com/qazaqedu/iquiz-server/internal/config"
	"github.com/qazaqedu/iquiz-server/internal/hub"
	"github.com/qazaqedu/iquiz-server/internal/service"
)

// NewServer builds the HTTP server with the room lifecycle and stream routes.
func NewServer(svc *service.Service, h *hub.Hub, cfg config.Config, tokens *auth.TokenConfig, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(svc, h, cfg, tokens, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine. Split from NewServer so tests can mount
// it on httptest servers.
func NewRouter(svc *service.Service, h *hub.Hub, cfg config.Config, tokens *auth.TokenConfig, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)

	handlers := NewHandlers(svc, cfg.CreatePerMinute, logger)
	wsHandler := NewWSHandler(h, svc, logger)

	api := engine.Group("/api/iquiz")
	api.POST("/create", handlers.CreateRoom)
	api.POST("/join", handlers.JoinRoom)
	api.GET("/room/:roomId/state", handlers.RoomState)
	api.POST("/room/:roomId/start", HostTokenMiddleware(tokens, logger), handlers.StartRoom)
	api.GET("/history", handlers.History)
	api.GET("/ws/:roomId", wsHandler.Handle)

	return engine
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
