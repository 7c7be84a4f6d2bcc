// Package audit records who did what through the server. Entries go through
// the application logger under the "audit" prefix, so they share its level
// and json/text format. Secret-looking parameters are redacted before logging.
package audit

import (
	"strings"
	"time"

	"pkgmcp/internal/logging"
	"pkgmcp/internal/metrics"
)

// Redacted replaces the value of any sensitive parameter.
const Redacted = "***REDACTED***"

// Security event types.
const (
	EventAuthenticationFailed = "authentication_failed"
	EventPermissionDenied     = "permission_denied"
	EventStartupRejected      = "startup_rejected"
)

var sensitiveKeys = []string{"password", "api_key", "token", "secret", "key"}

// Logger writes audit entries.
type Logger struct {
	logger  *logging.AppLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewLogger creates an audit logger on top of base.
func NewLogger(base *logging.AppLogger) *Logger {
	if base == nil {
		base = logging.GetDefault()
	}
	return &Logger{
		logger: base.WithPrefix("audit"),
		now:    time.Now,
	}
}

// WithMetrics returns a copy of l that also counts every entry in m.
func (l *Logger) WithMetrics(m *metrics.Metrics) *Logger {
	clone := *l
	clone.metrics = m
	return &clone
}

// LogToolInvocation records a tool call. params are sanitized; username may be
// empty for anonymous callers.
func (l *Logger) LogToolInvocation(tool, username string, params, result map[string]any, success bool) {
	keyvals := []interface{}{
		"event", "tool_invocation",
		"tool", tool,
		"timestamp", l.timestamp(),
		"success", success,
	}
	keyvals = appendUser(keyvals, username)
	if len(params) > 0 {
		keyvals = append(keyvals, "parameters", Sanitize(params))
	}
	if len(result) > 0 {
		keyvals = append(keyvals, "result", result)
	}

	l.logger.Info("audit_tool_invocation", keyvals...)
	l.metrics.ToolInvocation(tool, success)
}

// LogResourceAccess records a resource read.
func (l *Logger) LogResourceAccess(uri, username string) {
	keyvals := []interface{}{
		"event", "resource_access",
		"resource", uri,
		"timestamp", l.timestamp(),
	}
	keyvals = appendUser(keyvals, username)

	l.logger.Info("audit_resource_access", keyvals...)
	l.metrics.ResourceRead(uri)
}

// LogSecurityEvent records a security-relevant event at warn level. details
// are sanitized like tool parameters.
func (l *Logger) LogSecurityEvent(eventType string, details map[string]any, username string) {
	keyvals := []interface{}{
		"event", "security_event",
		"event_type", eventType,
		"timestamp", l.timestamp(),
		"details", Sanitize(details),
	}
	keyvals = appendUser(keyvals, username)

	l.logger.Warn("audit_security_event", keyvals...)
	l.metrics.SecurityEvent(eventType)
}

func (l *Logger) timestamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}

func appendUser(keyvals []interface{}, username string) []interface{} {
	if username == "" {
		return keyvals
	}
	return append(keyvals, "user", username)
}

// Sanitize returns a copy of params with every value whose key looks
// sensitive replaced by Redacted.
func Sanitize(params map[string]any) map[string]any {
	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if isSensitive(k) {
			sanitized[k] = Redacted
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
