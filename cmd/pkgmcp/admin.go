package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pkgmcp/internal/auth"
	"pkgmcp/internal/config"
	"pkgmcp/internal/console"
	"pkgmcp/internal/credentials"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the authentication setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}

			settings := auth.Settings{
				EnableAuth:       cfg.EnableAuth,
				EnableUserAuth:   cfg.EnableUserAuth,
				SingleAPIKeyMode: cfg.SingleAPIKeyMode,
			}

			p := a.printer(a.out)
			p.Header("Authentication Status")
			p.Section("Configuration")
			p.Info("Config File", configFileLabel(a.configFile))
			p.Info("Auth Mode", settings.Mode().String())
			p.Info("Single API Key Mode", strconv.FormatBool(cfg.SingleAPIKeyMode))
			printAuthSummary(p, cfg)

			if cfg.EnableUserAuth {
				store := auth.NewStore(cfg.UsersFile, logger)
				p.Section("Users")
				p.Info("Count", strconv.Itoa(len(store.List())))
				p.Info("Has Admin", strconv.FormatBool(store.HasAdmin()))
				if !store.HasAdmin() {
					p.Warning("No admin account. Run 'pkgmcp create-admin'")
				}
			}

			p.Section("Credential Store")
			printKeyringStatus(p, a.secrets.Status())
			return nil
		},
	}
}

func configFileLabel(explicit string) string {
	if explicit != "" {
		return explicit
	}
	path, exists := config.FindConfigFile()
	if !exists {
		return path + " (not found, using defaults)"
	}
	return path
}

func printKeyringStatus(p *console.Printer, status map[string]any) {
	available, _ := status["available"].(bool)
	p.Info("Available", strconv.FormatBool(available))
	if msg, ok := status["error"].(string); ok {
		p.Info("Error", msg)
	}
	if msg, ok := status["warning"].(string); ok {
		p.Warning("%s", msg)
	}
	if has, ok := status["has_legacy_key"].(bool); ok {
		p.Info("Legacy Key Stored", strconv.FormatBool(has))
	}
}

func newLegacyKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy-key",
		Short: "Manage the single shared API key in the OS keyring",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set [key]",
			Short: "Store the shared API key (generated when omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				key := ""
				if len(args) == 1 {
					key = args[0]
				}
				generated := key == ""
				if generated {
					var err error
					if key, err = auth.GenerateAPIKey(); err != nil {
						return err
					}
				}

				if err := a.secrets.StoreLegacyKey(key); err != nil {
					return err
				}

				p := a.printer(a.out)
				p.Success("Legacy API key stored in the OS keyring")
				if generated {
					p.Info("API Key", key)
					p.Warning("This API key will NOT be shown again")
				}
				p.Info("Enable with", "export MCP_ENABLE_AUTH=true")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the shared API key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.secrets.DeleteLegacyKey(); err != nil {
					return err
				}
				a.printer(a.out).Success("Legacy API key removed")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether a shared API key is stored",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p := a.printer(a.out)
				if _, err := a.secrets.GetLegacyKey(); err != nil {
					if errors.Is(err, credentials.ErrNoLegacyKey) {
						p.Warning("No legacy API key stored")
						return nil
					}
					return err
				}
				p.Success("Legacy API key is stored")
				return nil
			},
		},
	)

	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configFile
			if path == "" {
				path = config.ConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			save := cfg.Save
			if a.configFile != "" {
				save = func() error { return cfg.SaveTo(path) }
			}
			if err := save(); err != nil {
				return err
			}
			a.printer(a.out).Success("Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()
			data, err := yaml.Marshal(&redacted)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = a.out.Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
