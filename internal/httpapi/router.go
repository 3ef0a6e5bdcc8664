// Package httpapi exposes the chess service over HTTP and websockets.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	svcchess "github.com/park285/adaptive-chess-bot/internal/service/chess"
)

type Options struct {
	// CORSOrigins lists allowed browser origins. Empty allows any.
	CORSOrigins []string
	// WSPingInterval keeps idle websocket streams alive. Zero disables pings.
	WSPingInterval time.Duration
}

type handler struct {
	svc    *svcchess.Service
	logger *zap.Logger
	opts   Options
}

// NewRouter builds the gin engine serving every session route.
func NewRouter(svc *svcchess.Service, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: svc, logger: logger, opts: opts}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	router.GET("/health", h.health)
	router.GET("/history", h.history)

	router.POST("/session", h.createSession)
	session := router.Group("/session/:id")
	session.GET("", h.getSession)
	session.POST("/move", h.humanMove)
	session.POST("/bot", h.botMove)
	session.DELETE("", h.deleteSession)
	session.GET("/hint", h.hint)
	session.GET("/legal", h.legal)
	session.GET("/profile", h.profile)
	session.GET("/board.png", h.board)
	session.GET("/ws", h.watch)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("session_id", id))
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("http request", fields...)
			return
		}
		logger.Debug("http request", fields...)
	}
}
