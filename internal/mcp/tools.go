package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"pkgmcp/internal/audit"
	"pkgmcp/internal/auth"
)

// guard wraps a tool handler with the permission check for op. Denied calls
// are audited and answered with an error result; they never reach next.
func (s *Server) guard(op auth.Operation, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user := auth.UserFromContext(ctx)
		if !s.policy.CheckPermission(user, op) {
			username := auth.UsernameFromContext(ctx)
			s.audit.LogToolInvocation(op.String(), username, request.GetArguments(), nil, false)
			s.audit.LogSecurityEvent(audit.EventPermissionDenied, map[string]any{"operation": op.String()}, username)
			return mcp.NewToolResultError(permissionDeniedMessage(op)), nil
		}
		return next(ctx, request)
	}
}

func permissionDeniedMessage(op auth.Operation) string {
	return fmt.Sprintf("Permission denied. Operation '%s' requires admin privileges.", op)
}

func (s *Server) registerUserTools() {
	createUser := mcp.NewTool(auth.OpCreateUser.String(),
		mcp.WithDescription("Create a new user account (admin only)"),
		mcp.WithString("username",
			mcp.Required(),
			mcp.Description("Username for the new user"),
		),
		mcp.WithString("api_key",
			mcp.Description("API key for the user (optional, auto-generated if not provided)"),
		),
		mcp.WithString("role",
			mcp.Description("User role: 'admin' or 'user' (default: 'user')"),
			mcp.Enum(string(auth.RoleAdmin), string(auth.RoleUser)),
		),
	)
	s.mcpServer.AddTool(createUser, s.guard(auth.OpCreateUser, s.handleCreateUser))

	listUsers := mcp.NewTool(auth.OpListUsers.String(),
		mcp.WithDescription("List all users (admin only)"),
	)
	s.mcpServer.AddTool(listUsers, s.guard(auth.OpListUsers, s.handleListUsers))

	deleteUser := mcp.NewTool(auth.OpDeleteUser.String(),
		mcp.WithDescription("Delete a user account (admin only, cannot delete last admin)"),
		mcp.WithString("username",
			mcp.Required(),
			mcp.Description("Username of the user to delete"),
		),
	)
	s.mcpServer.AddTool(deleteUser, s.guard(auth.OpDeleteUser, s.handleDeleteUser))
}

func (s *Server) handleCreateUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caller := auth.UsernameFromContext(ctx)
	tool := auth.OpCreateUser.String()

	username, err := request.RequireString("username")
	if err != nil {
		s.audit.LogToolInvocation(tool, caller, request.GetArguments(), nil, false)
		return mcp.NewToolResultError(fmt.Sprintf("Error creating user: %v", err)), nil
	}

	role, err := auth.ParseRole(request.GetString("role", string(auth.RoleUser)))
	if err != nil {
		s.audit.LogToolInvocation(tool, caller, map[string]any{"username": username}, nil, false)
		return mcp.NewToolResultError(fmt.Sprintf("Error creating user: %v", err)), nil
	}

	user, apiKey, err := s.store.Create(username, request.GetString("api_key", ""), role)
	if err != nil {
		s.audit.LogToolInvocation(tool, caller, map[string]any{"username": username}, nil, false)
		if !errors.Is(err, auth.ErrValidation) {
			s.logger.Error("Failed to create user", "username", username, "error", err)
		}
		return mcp.NewToolResultError(fmt.Sprintf("Error creating user: %v", err)), nil
	}

	s.audit.LogToolInvocation(tool, caller,
		map[string]any{"username": username, "role": string(role)},
		map[string]any{"username": user.Username, "role": string(user.Role)},
		true)

	return mcp.NewToolResultText(fmt.Sprintf(
		"Successfully created user '%s' with role '%s'. API key: %s (save this securely, it won't be shown again)",
		user.Username, user.Role, apiKey)), nil
}

func (s *Server) handleListUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	users := s.store.List()
	s.audit.LogToolInvocation(auth.OpListUsers.String(), auth.UsernameFromContext(ctx), nil,
		map[string]any{"count": len(users)}, true)

	if len(users) == 0 {
		return mcp.NewToolResultText("No users found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Users (%d):", len(users))
	for _, u := range users {
		fmt.Fprintf(&b, "\n- %s (%s) - Created: %s", u.Username, u.Role, u.CreatedAt)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleDeleteUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caller := auth.UsernameFromContext(ctx)
	tool := auth.OpDeleteUser.String()

	username, err := request.RequireString("username")
	if err != nil {
		s.audit.LogToolInvocation(tool, caller, nil, nil, false)
		return mcp.NewToolResultError(fmt.Sprintf("Error deleting user: %v", err)), nil
	}
	params := map[string]any{"username": username}

	deleted, err := s.store.Delete(username)
	if err != nil {
		s.audit.LogToolInvocation(tool, caller, params, nil, false)
		return mcp.NewToolResultError(fmt.Sprintf("Error deleting user: %v", err)), nil
	}
	if !deleted {
		s.audit.LogToolInvocation(tool, caller, params, nil, false)
		return mcp.NewToolResultError(fmt.Sprintf("User '%s' not found", username)), nil
	}

	s.audit.LogToolInvocation(tool, caller, params, nil, true)
	return mcp.NewToolResultText(fmt.Sprintf("Successfully deleted user '%s'", username)), nil
}
