package main

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pkgmcp/internal/audit"
	"pkgmcp/internal/auth"
	"pkgmcp/internal/config"
	"pkgmcp/internal/console"
	"pkgmcp/internal/credentials"
	"pkgmcp/internal/logging"
	"pkgmcp/internal/mcp"
	"pkgmcp/internal/metrics"
	"pkgmcp/internal/prompts"
)

// app carries what every command needs. Nothing here is global so commands
// can be exercised in tests with their own streams and environment.
type app struct {
	v          *viper.Viper
	configFile string
	noColor    bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	secrets *credentials.Manager
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		v:       config.NewViper(),
		in:      in,
		out:     out,
		errOut:  errOut,
		secrets: credentials.NewManager(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           config.APP_NAME,
		Short:         "MCP server for package management and code standards",
		Version:       mcp.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default "+config.ConfigPath()+")")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or text")
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log_format", flags.Lookup("log-format"))

	root.AddCommand(
		newStdioCmd(a),
		newHTTPCmd(a),
		newCreateAdminCmd(a),
		newListUsersCmd(a),
		newStatusCmd(a),
		newLegacyKeyCmd(a),
		newConfigCmd(a),
	)

	return root
}

// printer returns a console printer for w honoring --no-color.
func (a *app) printer(w io.Writer) *console.Printer {
	if a.noColor {
		return console.NewWithProfile(w, termenv.Ascii)
	}
	return console.New(w)
}

// loadConfig layers defaults, the config file, MCP_* variables and flags,
// builds the configured logger, then falls back to the OS keyring for the
// legacy key.
func (a *app) loadConfig() (*config.Config, *logging.AppLogger, error) {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := a.newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.File != "" {
		logger.Debug("Configuration loaded", "path", cfg.File)
	}

	cfg.ResolveAPIKey(a.secrets, logger)
	logger.DebugObject("config", cfg.Redacted())
	return cfg, logger, nil
}

func (a *app) newLogger(cfg *config.Config) (*logging.AppLogger, error) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: a.errOut,
	})
}

// components is the wired server graph.
type components struct {
	store  *auth.Store
	authn  *auth.Authenticator
	audit  *audit.Logger
	server *mcp.Server
}

// buildComponents wires the server graph. m may be nil.
func buildComponents(cfg *config.Config, logger *logging.AppLogger, m *metrics.Metrics) (*components, error) {
	c := &components{audit: audit.NewLogger(logger).WithMetrics(m)}

	var users auth.UserLookup
	if cfg.EnableUserAuth {
		c.store = auth.NewStore(cfg.UsersFile, logger)
		if err := c.store.EnsureInitialized(); err != nil {
			return nil, fmt.Errorf("failed to initialize users file: %w", err)
		}
		users = c.store
	}

	c.authn = auth.NewAuthenticator(auth.Settings{
		EnableAuth:       cfg.EnableAuth,
		EnableUserAuth:   cfg.EnableUserAuth,
		SingleAPIKeyMode: cfg.SingleAPIKeyMode,
		LegacyKey:        cfg.APIKey,
	}, users, logger)

	server, err := mcp.NewServer(cfg, mcp.Deps{
		Logger:        logger,
		Store:         c.store,
		Authenticator: c.authn,
		Policy:        auth.NewPolicy(cfg.EnableUserAuth, logger),
		Audit:         c.audit,
		Prompts:       prompts.NewLoader(cfg.PromptsDir, logger),
	})
	if err != nil {
		return nil, err
	}
	c.server = server
	return c, nil
}

// printAuthSummary describes the authentication setup the way every command does.
func printAuthSummary(p *console.Printer, cfg *config.Config) {
	if !cfg.AuthRequired() {
		p.Info("Authentication", "Disabled")
		p.Warning("Authentication is disabled - not recommended for production!")
		return
	}
	p.Info("Authentication", "Enabled")
	if cfg.EnableUserAuth {
		p.Info("Auth Mode", "User-based")
		p.Info("Users File", cfg.UsersFile)
		return
	}
	p.Info("Auth Mode", "Single API Key")
	p.Info("API Key", console.Redact(cfg.APIKey))
}
