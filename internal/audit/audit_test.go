package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pkgmcp/internal/logging"
	"pkgmcp/internal/metrics"
)

func newTestAudit(t *testing.T) (*Logger, func() string) {
	t.Helper()
	base, buf := logging.NewTestLogger()
	l := NewLogger(base)
	l.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l, buf.String
}

func TestSanitize(t *testing.T) {
	params := map[string]any{
		"username":      "bob",
		"api_key":       "plaintext",
		"Password":      "hunter2",
		"auth_token":    "abc",
		"client_secret": "xyz",
		"role":          "user",
	}

	got := Sanitize(params)

	assert.Equal(t, "bob", got["username"])
	assert.Equal(t, "user", got["role"])
	for _, k := range []string{"api_key", "Password", "auth_token", "client_secret"} {
		assert.Equal(t, Redacted, got[k], k)
	}
	assert.Equal(t, "plaintext", params["api_key"], "input must not be modified")
}

func TestLogToolInvocation(t *testing.T) {
	l, output := newTestAudit(t)

	l.LogToolInvocation("create_user", "root",
		map[string]any{"username": "bob", "api_key": "supersecretvalue"},
		map[string]any{"role": "user"},
		true)

	out := output()
	assert.Contains(t, out, "audit_tool_invocation")
	assert.Contains(t, out, "create_user")
	assert.Contains(t, out, "root")
	assert.Contains(t, out, Redacted)
	assert.Contains(t, out, "2025-01-02T03:04:05Z")
	assert.NotContains(t, out, "supersecretvalue")
}

func TestLogToolInvocationAnonymous(t *testing.T) {
	l, output := newTestAudit(t)

	l.LogToolInvocation("list_users", "", nil, nil, false)

	out := output()
	assert.Contains(t, out, "success=false")
	assert.NotContains(t, out, "user=")
	assert.NotContains(t, out, "parameters")
}

func TestLogResourceAccess(t *testing.T) {
	l, output := newTestAudit(t)

	l.LogResourceAccess("auth://status", "bob")

	out := output()
	assert.Contains(t, out, "audit_resource_access")
	assert.Contains(t, out, "auth://status")
	assert.Contains(t, out, "user=bob")
}

func TestLogSecurityEvent(t *testing.T) {
	l, output := newTestAudit(t)

	l.LogSecurityEvent(EventAuthenticationFailed,
		map[string]any{"reason": "invalid credential", "token": "leaked"}, "")

	out := output()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, EventAuthenticationFailed)
	assert.Contains(t, out, "invalid credential")
	assert.NotContains(t, out, "leaked")
}

func TestWithMetrics(t *testing.T) {
	l, _ := newTestAudit(t)
	m := metrics.New()
	counted := l.WithMetrics(m)

	counted.LogToolInvocation("delete_user", "root", nil, nil, false)
	counted.LogResourceAccess("auth://status", "root")
	counted.LogSecurityEvent(EventPermissionDenied, nil, "bob")
	l.LogSecurityEvent(EventPermissionDenied, nil, "bob")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `pkgmcp_tool_invocations_total{result="failure",tool="delete_user"} 1`)
	assert.Contains(t, body, `pkgmcp_resource_reads_total{uri="auth://status"} 1`)
	assert.Contains(t, body, `pkgmcp_security_events_total{event="permission_denied"} 1`, "the original logger is not counted")
	assert.NotContains(t, body, "bob")
}
