package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pkgmcp/internal/auth"
	"pkgmcp/internal/config"
)

// ErrUsersExist is returned by create-admin when the store is not empty.
var ErrUsersExist = errors.New("users already exist")

// openStore loads config and opens the users file, honouring an explicit path.
func (a *app) openStore(usersFile string) (*auth.Store, *config.Config, error) {
	cfg, logger, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if usersFile != "" {
		cfg.UsersFile = usersFile
		cfg.Normalize()
	}
	return auth.NewStore(cfg.UsersFile, logger), cfg, nil
}

func newCreateAdminCmd(a *app) *cobra.Command {
	var (
		username    string
		apiKey      string
		usersFile   string
		showExample bool
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the first admin account",
		Long: `Create the first admin account for user-based authentication.

Only the first account can be created here. Further accounts are created by
an admin through the create_user MCP tool.`,
		Example: `  pkgmcp create-admin
  pkgmcp create-admin --username admin --api-key my-secure-key
  pkgmcp create-admin --show-example`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := a.openStore(usersFile)
			if err != nil {
				return err
			}

			p := a.printer(a.out)
			p.Header("Create Admin Account")
			p.Section("Configuration")
			p.Info("Username", username)
			p.Info("Role", string(auth.RoleAdmin))
			p.Info("Users File", store.Path())
			if apiKey != "" {
				p.Info("API Key", "Custom (provided)")
			} else {
				p.Info("API Key", "Auto-generated")
			}

			if existing := store.List(); len(existing) > 0 {
				p.Error("Users already exist!")
				p.Info("Count", strconv.Itoa(len(existing)))
				p.Info("Action", "Use the 'create_user' MCP tool instead (admin only)")
				return fmt.Errorf("cannot create first admin: %w", ErrUsersExist)
			}

			user, plainKey, err := store.CreateFirstAdmin(username, apiKey)
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}

			p.Section("Account Created Successfully")
			p.Success("Admin account '%s' created", user.Username)
			p.Info("Username", user.Username)
			p.Info("Role", string(user.Role))
			p.Info("Created At", user.CreatedAt)
			p.Info("API Key", plainKey)
			p.Info("Users File", store.Path())

			p.Section("Next Steps")
			p.Info("1", "Enable user authentication:")
			p.Info("", "  export MCP_ENABLE_USER_AUTH=true")
			p.Info("2", "Set the API key in your environment:")
			p.Info("", "  export MCP_API_KEY="+plainKey)
			p.Info("3", "Start the server:")
			p.Info("", "  pkgmcp stdio")
			p.Info("4", "Create additional users using the 'create_user' MCP tool")

			if showExample {
				example, err := clientConfigExample(store.Path(), plainKey, cfg)
				if err != nil {
					return err
				}
				p.Section("Example Configuration")
				p.Info("", "Add this to your mcp.json:")
				p.Code(example)
			}

			p.Section("Important Notes")
			p.Warning("This API key will NOT be shown again")
			p.Info("Storage", "API keys are stored as SHA-256 hashes")
			p.Info("Permissions", "Admin users have full access to all operations")
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "admin", "username for the admin account")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the admin account (auto-generated if empty)")
	cmd.Flags().StringVar(&usersFile, "users-file", "", "path to users file (uses config default if empty)")
	cmd.Flags().BoolVar(&showExample, "show-example", false, "show an example client configuration")

	return cmd
}

type mcpClientEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// clientConfigExample renders an mcp.json snippet for a stdio client.
func clientConfigExample(usersFile, apiKey string, cfg *config.Config) (string, error) {
	example := map[string]map[string]mcpClientEntry{
		"mcpServers": {
			config.APP_NAME: {
				Command: config.APP_NAME,
				Args:    []string{"stdio"},
				Env: map[string]string{
					"MCP_ENABLE_USER_AUTH": "true",
					"MCP_USERS_FILE":       usersFile,
					"MCP_API_KEY":          apiKey,
					"MCP_LOG_LEVEL":        cfg.LogLevel,
					"MCP_LOG_FORMAT":       cfg.LogFormat,
				},
			},
		},
	}
	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render example: %w", err)
	}
	return string(data), nil
}

func newListUsersCmd(a *app) *cobra.Command {
	var usersFile string

	cmd := &cobra.Command{
		Use:   "list-users",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := a.openStore(usersFile)
			if err != nil {
				return err
			}

			p := a.printer(a.out)
			p.Header("User Accounts")
			p.Info("Users File", store.Path())

			users := store.List()
			if len(users) == 0 {
				p.Warning("No users found.")
				p.Info("Action", "Run 'pkgmcp create-admin' to create the first admin")
				return nil
			}

			p.Section(fmt.Sprintf("Users (%d)", len(users)))
			for _, u := range users {
				p.Info(u.Username, fmt.Sprintf("%s - Created: %s", u.Role, u.CreatedAt))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&usersFile, "users-file", "", "path to users file (uses config default if empty)")
	return cmd
}
