package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pkgmcp/internal/audit"
	"pkgmcp/internal/auth"
	"pkgmcp/internal/prompts"
)

// registerPrompts loads prompt files and exposes each one as an MCP prompt.
func (s *Server) registerPrompts() error {
	if s.prompts == nil {
		return nil
	}
	if err := s.prompts.Load(); err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	for _, p := range s.prompts.List() {
		opts := []mcp.PromptOption{mcp.WithPromptDescription(p.Description)}
		for _, arg := range p.Arguments {
			argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(arg.Description)}
			if arg.Required {
				argOpts = append(argOpts, mcp.RequiredArgument())
			}
			opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
		}
		s.mcpServer.AddPrompt(mcp.NewPrompt(p.Name, opts...), s.promptHandler(p))
	}

	s.logger.Info("Prompts registered", "count", len(s.prompts.List()), "dir", s.prompts.Dir())
	return nil
}

func (s *Server) promptHandler(p *prompts.Prompt) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		username := auth.UsernameFromContext(ctx)
		if !s.policy.CheckPermission(auth.UserFromContext(ctx), auth.OpGetPrompt) {
			s.audit.LogSecurityEvent(audit.EventPermissionDenied, map[string]any{"operation": auth.OpGetPrompt.String(), "prompt": p.Name}, username)
			return nil, fmt.Errorf("permission denied for %s", auth.OpGetPrompt)
		}

		text, err := p.Render(request.Params.Arguments)
		if err != nil {
			return nil, fmt.Errorf("failed to render prompt %s: %w", p.Name, err)
		}

		s.audit.LogResourceAccess("prompt://"+p.Name, username)
		return mcp.NewGetPromptResult(p.Description, []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		}), nil
	}
}
