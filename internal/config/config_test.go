package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgmcp/internal/logging"
)

// isolateXDG points the config and data homes at temporary directories.
func isolateXDG(t *testing.T) {
	t.Helper()
	origConfig, origData := xdg.ConfigHome, xdg.DataHome
	xdg.ConfigHome = t.TempDir()
	xdg.DataHome = t.TempDir()
	t.Cleanup(func() {
		xdg.ConfigHome = origConfig
		xdg.DataHome = origData
	})
}

func TestPaths(t *testing.T) {
	isolateXDG(t)

	assert.Equal(t, filepath.Join(xdg.ConfigHome, "pkgmcp", "config.yaml"), ConfigPath())
	assert.Equal(t, filepath.Join(xdg.DataHome, "pkgmcp", "users.json"), DefaultUsersFile())

	path, exists := FindConfigFile()
	assert.Equal(t, ConfigPath(), path)
	assert.False(t, exists)
}

func TestLoad_Defaults(t *testing.T) {
	isolateXDG(t)

	cfg, err := Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.False(t, cfg.EnableAuth)
	assert.False(t, cfg.EnableUserAuth)
	assert.True(t, cfg.SingleAPIKeyMode)
	assert.Equal(t, DefaultUsersFile(), cfg.UsersFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.EnableMetrics)
	assert.Empty(t, cfg.CORSOrigins)
	assert.False(t, cfg.AuthRequired())
	assert.Empty(t, cfg.File)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolateXDG(t)
	usersFile := filepath.Join(t.TempDir(), "users.json")

	t.Setenv("MCP_TRANSPORT", "HTTP")
	t.Setenv("MCP_PORT", "9123")
	t.Setenv("MCP_ENABLE_AUTH", "true")
	t.Setenv("MCP_ENABLE_USER_AUTH", "true")
	t.Setenv("MCP_USERS_FILE", usersFile)
	t.Setenv("MCP_LOG_LEVEL", "WARNING")
	t.Setenv("MCP_API_KEY", "from-env")

	cfg, err := Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 9123, cfg.Port)
	assert.True(t, cfg.EnableAuth)
	assert.True(t, cfg.EnableUserAuth)
	assert.Equal(t, usersFile, cfg.UsersFile)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.True(t, cfg.AuthRequired())
}

func TestLoad_ConfigFileThenEnv(t *testing.T) {
	isolateXDG(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "transport: http\nport: 7000\nlog_format: text\nenable_auth: true\n" +
		"enable_metrics: false\ncors_origins:\n  - http://localhost:3000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("MCP_PORT", "7001")

	cfg, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 7001, cfg.Port, "environment wins over the config file")
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.EnableAuth)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_StandardLocation(t *testing.T) {
	isolateXDG(t)

	require.NoError(t, os.MkdirAll(filepath.Dir(ConfigPath()), 0o700))
	require.NoError(t, os.WriteFile(ConfigPath(), []byte("host: 0.0.0.0\n"), 0o600))

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolateXDG(t)

	_, err := Load(nil, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad transport", func(c *Config) { c.Transport = "websocket" }, "invalid transport"},
		{"port zero", func(c *Config) { c.Port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "invalid port"},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"user auth without file", func(c *Config) {
			c.EnableUserAuth = true
			c.UsersFile = ""
		}, "users_file is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.UsersFile = "~/.mcp_server/users.json"
	cfg.Normalize()

	assert.Equal(t, filepath.Join(home, ".mcp_server", "users.json"), cfg.UsersFile)
}

type fakeSecrets struct {
	key string
	err error
}

func (f fakeSecrets) GetLegacyKey() (string, error) { return f.key, f.err }

func TestResolveAPIKey(t *testing.T) {
	t.Run("fills from source in legacy mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableAuth = true
		cfg.ResolveAPIKey(fakeSecrets{key: "from-keyring"}, nil)
		assert.Equal(t, "from-keyring", cfg.APIKey)
	})

	t.Run("configured key wins", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableAuth = true
		cfg.APIKey = "configured"
		cfg.ResolveAPIKey(fakeSecrets{key: "from-keyring"}, nil)
		assert.Equal(t, "configured", cfg.APIKey)
	})

	t.Run("ignored when auth disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ResolveAPIKey(fakeSecrets{key: "from-keyring"}, nil)
		assert.Empty(t, cfg.APIKey)
	})

	t.Run("ignored in user mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableAuth = true
		cfg.EnableUserAuth = true
		cfg.ResolveAPIKey(fakeSecrets{key: "from-keyring"}, nil)
		assert.Empty(t, cfg.APIKey)
	})

	t.Run("source error leaves key empty", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableAuth = true
		logger, buf := logging.NewTestLogger()
		cfg.ResolveAPIKey(fakeSecrets{err: errors.New("not found")}, logger)
		assert.Empty(t, cfg.APIKey)
		assert.Contains(t, buf.String(), "No legacy API key in credential store")
	})
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "plaintext-secret-value"

	redacted := cfg.Redacted()
	assert.Equal(t, "***REDACTED***", redacted.APIKey)
	assert.Equal(t, "plaintext-secret-value", cfg.APIKey, "the original is untouched")

	empty := DefaultConfig()
	assert.Empty(t, empty.Redacted().APIKey)
}

func TestSave(t *testing.T) {
	isolateXDG(t)

	cfg := DefaultConfig()
	cfg.Port = 9100
	require.NoError(t, cfg.Save())
	assert.FileExists(t, ConfigPath())

	loaded, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 9100, loaded.Port)
	assert.Equal(t, ConfigPath(), loaded.File)
}

func TestSaveTo(t *testing.T) {
	isolateXDG(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Transport = TransportHTTP
	cfg.Port = 8443
	cfg.EnableUserAuth = true
	require.NoError(t, cfg.SaveTo(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\napi_key:", "empty api key should be omitted")

	loaded, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, TransportHTTP, loaded.Transport)
	assert.Equal(t, 8443, loaded.Port)
	assert.True(t, loaded.EnableUserAuth)
	assert.Equal(t, cfg.UsersFile, loaded.UsersFile)
}
