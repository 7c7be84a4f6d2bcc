// Package mcp implements the pkgmcp Model Context Protocol server using mcp-go.
//
// The server exposes:
//   - user management tools (create_user, list_users, delete_user), registered
//     only when per-user authentication is enabled
//   - the auth://status resource describing the authentication mode and caller
//   - prompts loaded from markdown files by the prompts package
//
// # Implementation
//
// The package uses the mcp-go library (github.com/mark3labs/mcp-go).
//
// # Security
//
// Every request carries the caller's identity on its context (see
// auth.ContextWithUser). Handlers check it against the authorization policy
// before doing any work:
//   - tools are wrapped by a guard that audits and rejects denied calls
//   - resource reads and prompt renders check read_resource and get_prompt
//
// On stdio the credential comes from configuration and is verified once at
// startup; if authentication is required and fails the server refuses to run.
// Over HTTP the transport middleware authenticates each request and the
// streamable HTTP handler copies the identity into the MCP request context.
//
// # Usage
//
//	srv, err := mcp.NewServer(cfg, mcp.Deps{
//	    Logger:        logger,
//	    Store:         store,
//	    Authenticator: authn,
//	    Policy:        policy,
//	    Audit:         auditLogger,
//	    Prompts:       prompts.NewLoader(cfg.PromptsDir, logger),
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.ServeStdio(ctx, cfg.APIKey, os.Stdin, os.Stdout)
package mcp
