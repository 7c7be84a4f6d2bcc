package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestPrinter_PlainOutputWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Header("Create Admin Account")
	p.Section("Configuration")
	p.Info("Username", "admin")
	p.Info("", "export MCP_ENABLE_USER_AUTH=true")
	p.Success("Admin account '%s' created", "admin")
	p.Warning("Save this API key")
	p.Error("Users already exist")

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal, so no escape codes")
	assert.Contains(t, out, strings.Repeat("=", ruleWidth))
	assert.Contains(t, out, "  Create Admin Account")
	assert.Contains(t, out, "Configuration\n-------------")
	assert.Contains(t, out, "  Username: admin\n")
	assert.Contains(t, out, "  export MCP_ENABLE_USER_AUTH=true\n")
	assert.Contains(t, out, "✓ Admin account 'admin' created")
	assert.Contains(t, out, "! Save this API key")
	assert.Contains(t, out, "✗ Users already exist")
}

func TestNewWithProfile(t *testing.T) {
	var colored bytes.Buffer
	NewWithProfile(&colored, termenv.TrueColor).Success("ok")
	assert.Contains(t, colored.String(), "\x1b[")

	var plain bytes.Buffer
	NewWithProfile(&plain, termenv.Ascii).Success("ok")
	assert.Equal(t, "✓ ok\n", plain.String())
}

func TestPrinter_Code(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Code("{\n  \"a\": 1\n}")

	assert.Contains(t, buf.String(), `"a": 1`)
	assert.Contains(t, buf.String(), "╭")
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "Not set", Redact(""))
	assert.Equal(t, "***REDACTED***", Redact("super-secret"))
	assert.NotContains(t, Redact("super-secret"), "super")
}
