package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkgmcp/internal/logging"
	"pkgmcp/pkg/fileops"
)

const APP_NAME = "pkgmcp" // application name used for config and data directories

// EnvPrefix is prepended to every environment variable, e.g. MCP_ENABLE_AUTH.
const EnvPrefix = "MCP"

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds server configuration. Values are layered: defaults, then the
// YAML config file, then MCP_* environment variables, then command flags.
type Config struct {
	Transport string `yaml:"transport" mapstructure:"transport"`
	Host      string `yaml:"host" mapstructure:"host"`
	Port      int    `yaml:"port" mapstructure:"port"`

	// CORSOrigins lists browser origins allowed to call the HTTP transport.
	CORSOrigins []string `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	// EnableMetrics serves Prometheus metrics at /metrics on the HTTP transport.
	EnableMetrics bool `yaml:"enable_metrics" mapstructure:"enable_metrics"`

	// APIKey is the legacy shared secret. It may also live in the OS keyring.
	APIKey           string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	EnableAuth       bool   `yaml:"enable_auth" mapstructure:"enable_auth"`
	EnableUserAuth   bool   `yaml:"enable_user_auth" mapstructure:"enable_user_auth"`
	SingleAPIKeyMode bool   `yaml:"single_api_key_mode" mapstructure:"single_api_key_mode"`
	UsersFile        string `yaml:"users_file" mapstructure:"users_file"`

	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`

	PromptsDir  string `yaml:"prompts_dir" mapstructure:"prompts_dir"`
	ProjectRoot string `yaml:"project_root,omitempty" mapstructure:"project_root"`

	// File is the config file that was read, empty when none was.
	File string `yaml:"-" mapstructure:"-"`
}

// SecretSource supplies the legacy API key when it is not configured directly.
type SecretSource interface {
	GetLegacyKey() (string, error)
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, APP_NAME, "config.yaml")
}

// DataDir returns the directory holding the users file and prompts.
func DataDir() string {
	return filepath.Join(xdg.DataHome, APP_NAME)
}

// DefaultUsersFile returns the default location of the credential store.
func DefaultUsersFile() string {
	return filepath.Join(DataDir(), "users.json")
}

// FindConfigFile returns the path to the config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary := ConfigPath()
	if _, err := os.Stat(primary); err == nil {
		return primary, true
	}
	return primary, false
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Transport:        TransportStdio,
		Host:             "localhost",
		Port:             8000,
		EnableMetrics:    true,
		EnableAuth:       false,
		EnableUserAuth:   false,
		SingleAPIKeyMode: true,
		UsersFile:        DefaultUsersFile(),
		LogLevel:         "info",
		LogFormat:        "json",
		PromptsDir:       filepath.Join(DataDir(), "prompts"),
	}
}

// NewViper returns a viper instance preloaded with defaults and bound to the
// MCP_* environment. Callers may bind command flags before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("transport", defaults.Transport)
	v.SetDefault("host", defaults.Host)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("enable_metrics", defaults.EnableMetrics)
	v.SetDefault("api_key", defaults.APIKey)
	v.SetDefault("enable_auth", defaults.EnableAuth)
	v.SetDefault("enable_user_auth", defaults.EnableUserAuth)
	v.SetDefault("single_api_key_mode", defaults.SingleAPIKeyMode)
	v.SetDefault("users_file", defaults.UsersFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("prompts_dir", defaults.PromptsDir)
	v.SetDefault("project_root", defaults.ProjectRoot)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configuration through v. When configFile is empty the standard
// location is used if it exists; a missing standard file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}

	path, exists := configFile, configFile != ""
	if !exists {
		path, exists = FindConfigFile()
	}

	if exists {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if exists {
		cfg.File = path
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Normalize lowercases enumerated values and expands a leading ~ in paths.
func (c *Config) Normalize() {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.UsersFile = expandHome(strings.TrimSpace(c.UsersFile))
	c.PromptsDir = expandHome(strings.TrimSpace(c.PromptsDir))
	c.ProjectRoot = expandHome(strings.TrimSpace(c.ProjectRoot))
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid transport %q (must be stdio or http)", c.Transport)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d (must be 1-65535)", c.Port)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q (must be json or text)", c.LogFormat)
	}

	if c.EnableUserAuth && c.UsersFile == "" {
		return errors.New("users_file is required when user authentication is enabled")
	}

	return nil
}

// AuthRequired reports whether callers must present a credential.
func (c *Config) AuthRequired() bool {
	return c.EnableAuth || c.EnableUserAuth
}

// ResolveAPIKey fills APIKey from src when legacy authentication is enabled
// and no key was configured directly. A missing keyring entry is not an error.
func (c *Config) ResolveAPIKey(src SecretSource, logger *logging.AppLogger) {
	if c.APIKey != "" || !c.EnableAuth || c.EnableUserAuth || src == nil {
		return
	}
	if logger == nil {
		logger = logging.GetDefault()
	}

	key, err := src.GetLegacyKey()
	if err != nil {
		logger.Debug("No legacy API key in credential store", "error", err)
		return
	}
	logger.Debug("Legacy API key loaded from credential store")
	c.APIKey = key
}

// Redacted returns a copy of c that is safe to print or log.
func (c *Config) Redacted() Config {
	out := *c
	if out.APIKey != "" {
		out.APIKey = "***REDACTED***"
	}
	return out
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the config to a specific path with restrictive permissions.
func (c *Config) SaveTo(path string) error {
	if err := fileops.EnsureDirectoryExists(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := fileops.AtomicWriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
