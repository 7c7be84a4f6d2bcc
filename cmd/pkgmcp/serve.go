package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"pkgmcp/internal/config"
	"pkgmcp/internal/mcp"
	"pkgmcp/internal/metrics"
	"pkgmcp/internal/transport"
)

func newStdioCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP over stdin/stdout",
		Long: `Serve MCP over stdin/stdout for a local client.

The credential is read from MCP_API_KEY (or the OS keyring in single API key
mode) and checked once at startup. When authentication is required and the
credential is missing or wrong the server does not start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			cfg.Transport = config.TransportStdio

			// stdout carries the protocol; everything human goes to stderr.
			p := a.printer(a.errOut)
			p.Header("MCP Server - Stdio Transport")
			p.Section("Configuration")
			p.Info("Transport", cfg.Transport)
			p.Info("Project Root", projectRoot(cfg))
			p.Info("Log Level", cfg.LogLevel)
			p.Info("Log Format", cfg.LogFormat)
			printAuthSummary(p, cfg)

			c, err := buildComponents(cfg, logger, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.server.ServeStdio(ctx, cfg.APIKey, a.in, a.out)
		},
	}
}

func newHTTPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve MCP over streamable HTTP",
		Long: `Serve MCP over streamable HTTP at /mcp, with an unauthenticated /health.

Clients authenticate every request with X-API-Key, Authorization (optionally
"Bearer <key>") or X-Auth-Token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			cfg.Transport = config.TransportHTTP

			gin.SetMode(gin.ReleaseMode)
			if cfg.LogLevel == "debug" {
				gin.SetMode(gin.DebugMode)
			}

			var m *metrics.Metrics
			if cfg.EnableMetrics {
				m = metrics.New()
			}

			c, err := buildComponents(cfg, logger, m)
			if err != nil {
				return err
			}

			router := transport.NewRouter(c.server.HTTPHandler(), transport.RouterOptions{
				Authenticator: c.authn,
				Audit:         c.audit,
				Logger:        logger,
				ServerName:    mcp.ServerName,
				CORSOrigins:   cfg.CORSOrigins,
				Metrics:       m,
			})
			srv := transport.NewServer(cfg.Host, cfg.Port, router, logger)

			baseURL := "http://" + srv.Addr()
			p := a.printer(a.out)
			p.Header("MCP Server - HTTP Transport")
			p.Section("Configuration")
			p.Info("Host", cfg.Host)
			p.Info("Port", strconv.Itoa(cfg.Port))
			p.Info("Project Root", projectRoot(cfg))
			p.Info("Log Level", cfg.LogLevel)
			p.Info("Log Format", cfg.LogFormat)
			printAuthSummary(p, cfg)
			if cfg.AuthRequired() {
				p.Warning("API key required in request headers (X-API-Key or Authorization)")
			}
			p.Section("Endpoints")
			p.Info("Health Check", "GET "+baseURL+"/health")
			p.Info("MCP", baseURL+transport.MCPPath)
			if m != nil {
				p.Info("Metrics", "GET "+baseURL+"/metrics")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Run(ctx); err != nil {
				return err
			}
			p.Success("Server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().String("host", "", "HTTP server host (default localhost)")
	cmd.Flags().Int("port", 0, "HTTP server port (default 8000)")
	_ = a.v.BindPFlag("host", cmd.Flags().Lookup("host"))
	_ = a.v.BindPFlag("port", cmd.Flags().Lookup("port"))

	return cmd
}

func projectRoot(cfg *config.Config) string {
	if cfg.ProjectRoot != "" {
		return cfg.ProjectRoot
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Sprintf("unknown (%v)", err)
	}
	return wd
}
