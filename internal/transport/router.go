// Package transport serves the MCP server over HTTP with gin.
//
// Routes:
//   - GET /health answers without authentication
//   - GET /metrics serves Prometheus metrics when enabled, also unauthenticated
//   - /mcp (any method) is the streamable HTTP endpoint, behind AuthMiddleware
package transport

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"pkgmcp/internal/audit"
	"pkgmcp/internal/auth"
	"pkgmcp/internal/logging"
	"pkgmcp/internal/metrics"
)

// MCPPath is where the streamable HTTP handler is mounted.
const MCPPath = "/mcp"

// RouterOptions configure NewRouter.
type RouterOptions struct {
	Authenticator *auth.Authenticator
	Audit         *audit.Logger
	Logger        *logging.AppLogger
	ServerName    string
	// CORSOrigins enables CORS for the listed origins; "*" allows any origin.
	CORSOrigins []string
	// Metrics, when set, is fed by every request and served at /metrics.
	Metrics *metrics.Metrics
}

// NewRouter builds the gin engine that fronts mcpHandler.
func NewRouter(mcpHandler http.Handler, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}
	auditLogger := opts.Audit
	if auditLogger == nil {
		auditLogger = audit.NewLogger(logger)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger, opts.Metrics))
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(opts.CORSOrigins)))
	}

	router.GET("/health", healthHandler(opts.ServerName))
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	mcpRoutes := router.Group(MCPPath, AuthMiddleware(opts.Authenticator, auditLogger))
	mcpRoutes.Any("", gin.WrapH(mcpHandler))

	return router
}

func healthHandler(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "server": name})
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "Accept", "X-API-Key", "X-Auth-Token", "Mcp-Session-Id"},
		ExposeHeaders: []string{"Content-Type", "Mcp-Session-Id"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
