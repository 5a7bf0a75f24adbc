package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gomoku-arena/internal/auth"
	"github.com/vovakirdan/gomoku-arena/internal/config"
	"github.com/vovakirdan/gomoku-arena/internal/core"
	"github.com/vovakirdan/gomoku-arena/internal/history"
)

// NewServer builds the HTTP server: health, REST history read path and
// the WebSocket session endpoint.
func NewServer(hub *core.Hub, tokens *auth.Config, st history.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	historyHandlers := NewHistoryHandlers(st, logger)
	api := router.Group("/api")
	{
		api.GET("/history", historyHandlers.Query)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, tokens, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
