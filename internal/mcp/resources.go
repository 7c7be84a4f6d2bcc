package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pkgmcp/internal/audit"
	"pkgmcp/internal/auth"
)

// StatusURI is the resource describing the server's authentication state.
const StatusURI = "auth://status"

// AuthStatus is the JSON body of the status resource.
type AuthStatus struct {
	Mode             string      `json:"auth_mode"`
	EnableAuth       bool        `json:"enable_auth"`
	EnableUserAuth   bool        `json:"enable_user_auth"`
	SingleAPIKeyMode bool        `json:"single_api_key_mode"`
	UserCount        *int        `json:"user_count,omitempty"`
	HasAdmin         *bool       `json:"has_admin,omitempty"`
	Caller           *CallerInfo `json:"caller"`
}

// CallerInfo identifies who read the status.
type CallerInfo struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *Server) registerResources() {
	status := mcp.NewResource(StatusURI, "Authentication status",
		mcp.WithResourceDescription("Authentication mode, user store summary and the caller's identity"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(status, s.handleStatus)
}

// Status builds the status document for the caller in ctx.
func (s *Server) Status(ctx context.Context) AuthStatus {
	settings := s.authn.Settings()
	status := AuthStatus{
		Mode:             s.authn.Mode().String(),
		EnableAuth:       settings.EnableAuth,
		EnableUserAuth:   settings.EnableUserAuth,
		SingleAPIKeyMode: settings.SingleAPIKeyMode,
	}

	if s.store != nil && settings.EnableUserAuth {
		users := s.store.List()
		count := len(users)
		hasAdmin := false
		for _, u := range users {
			if u.Role == auth.RoleAdmin {
				hasAdmin = true
				break
			}
		}
		status.UserCount = &count
		status.HasAdmin = &hasAdmin
	}

	if user := auth.UserFromContext(ctx); user != nil {
		status.Caller = &CallerInfo{Username: user.Username, Role: string(user.Role)}
	}
	return status
}

func (s *Server) handleStatus(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	username := auth.UsernameFromContext(ctx)
	if !s.policy.CheckPermission(auth.UserFromContext(ctx), auth.OpReadResource) {
		s.audit.LogSecurityEvent(audit.EventPermissionDenied, map[string]any{"operation": auth.OpReadResource.String(), "resource": StatusURI}, username)
		return nil, fmt.Errorf("permission denied for %s", auth.OpReadResource)
	}
	s.audit.LogResourceAccess(StatusURI, username)

	body, err := json.MarshalIndent(s.Status(ctx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StatusURI,
			MIMEType: "application/json",
			Text:     string(body),
		},
	}, nil
}
