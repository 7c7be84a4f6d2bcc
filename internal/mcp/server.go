package mcp

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"pkgmcp/internal/audit"
	"pkgmcp/internal/auth"
	"pkgmcp/internal/config"
	"pkgmcp/internal/logging"
	"pkgmcp/internal/prompts"
)

// ServerName is reported to clients during initialization.
const ServerName = "pkgmcp"

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the collaborators a Server needs. Store may be nil when user
// authentication is disabled; Prompts may be nil to serve no prompts.
type Deps struct {
	Logger        *logging.AppLogger
	Store         *auth.Store
	Authenticator *auth.Authenticator
	Policy        *auth.Policy
	Audit         *audit.Logger
	Prompts       *prompts.Loader
}

// Server represents an MCP server instance using mcp-go
type Server struct {
	config    *config.Config
	logger    *logging.AppLogger
	store     *auth.Store
	authn     *auth.Authenticator
	policy    *auth.Policy
	audit     *audit.Logger
	prompts   *prompts.Loader
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server and registers its tools, resources and prompts.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Authenticator == nil || deps.Policy == nil {
		return nil, fmt.Errorf("authenticator and policy are required")
	}
	if cfg.EnableUserAuth && deps.Store == nil {
		return nil, fmt.Errorf("user store is required when user authentication is enabled")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}
	auditLogger := deps.Audit
	if auditLogger == nil {
		auditLogger = audit.NewLogger(logger)
	}

	s := &Server{
		config:  cfg,
		logger:  logger.With("component", "mcp"),
		store:   deps.Store,
		authn:   deps.Authenticator,
		policy:  deps.Policy,
		audit:   auditLogger,
		prompts: deps.Prompts,
	}

	s.mcpServer = server.NewMCPServer(
		ServerName,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	s.registerResources()
	if cfg.EnableUserAuth {
		s.registerUserTools()
	}
	if err := s.registerPrompts(); err != nil {
		return nil, err
	}

	s.logger.Info("MCP server initialized",
		"auth_mode", s.authn.Mode(),
		"user_tools", cfg.EnableUserAuth,
	)
	return s, nil
}

const instructions = `pkgmcp exposes package-management and code-standards tooling.
Read auth://status to see the authentication mode and your identity.
User management tools require an admin API key.`

// MCPServer exposes the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio authenticates credential once and serves JSON-RPC over in/out
// until ctx is cancelled or in reaches EOF. When authentication is required
// and fails the server does not start.
func (s *Server) ServeStdio(ctx context.Context, credential string, in io.Reader, out io.Writer) error {
	outcome := s.authn.Authenticate(credential)
	if outcome.Denied() {
		s.audit.LogSecurityEvent(audit.EventStartupRejected, map[string]any{
			"transport": config.TransportStdio,
			"reason":    outcome.Reason.String(),
		}, "")
		return fmt.Errorf("stdio startup refused: %w", outcome.Err())
	}

	identity := outcome.User
	if identity != nil {
		s.logger.Info("Stdio session authenticated", "username", identity.Username, "role", identity.Role)
	}

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(s.logger.StandardLog())
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return auth.ContextWithUser(ctx, identity)
	})

	s.logger.Info("Serving MCP over stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP stdio server failed: %w", err)
	}
	return nil
}

// HTTPHandler returns the streamable HTTP handler. It expects the caller's
// identity on the request context, placed there by the transport middleware.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return auth.ContextWithUser(ctx, auth.UserFromContext(r.Context()))
		}),
	)
}
