package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pkgmcp/internal/audit"
	"pkgmcp/internal/auth"
	"pkgmcp/internal/logging"
	"pkgmcp/internal/metrics"
)

// credentialHeaders are checked in order; the first non-empty one is used.
var credentialHeaders = []string{"X-API-Key", "Authorization", "X-Auth-Token"}

// ExtractAPIKey returns the API key carried by h, or "" when none is present.
// A "Bearer " prefix is stripped.
func ExtractAPIKey(h http.Header) string {
	for _, name := range credentialHeaders {
		value := strings.TrimSpace(h.Get(name))
		if value == "" {
			continue
		}
		return strings.TrimSpace(strings.TrimPrefix(value, "Bearer "))
	}
	return ""
}

// AuthMiddleware authenticates every request with authn. Denied requests are
// answered with 401 and audited; accepted requests carry the caller's
// identity on their context.
func AuthMiddleware(authn *auth.Authenticator, auditLogger *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := authn.Authenticate(ExtractAPIKey(c.Request.Header))

		if outcome.Denied() {
			auditLogger.LogSecurityEvent(audit.EventAuthenticationFailed, map[string]any{
				"reason":    outcome.Reason.String(),
				"path":      c.Request.URL.Path,
				"client_ip": c.ClientIP(),
			}, "")
			c.JSON(http.StatusUnauthorized, gin.H{"error": outcome.Reason.String()})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.ContextWithUser(c.Request.Context(), outcome.User))
		c.Next()
	}
}

// requestLogger logs one line per request through the application logger
// and counts it in m. gin's default logger writes to stdout, which the stdio
// transport owns.
func requestLogger(logger *logging.AppLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		m.HTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"username", auth.UsernameFromContext(c.Request.Context()),
		)
	}
}
