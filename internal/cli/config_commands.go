package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ofs-tools/ofs-client/internal/config"
	"github.com/ofs-tools/ofs-client/internal/constants"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ofs-client configuration",
		Long: `Configuration management commands for ofs-client.

Commands:
  init  - Interactive configuration setup
  show  - Display the effective configuration
  path  - Show the configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for ofs-client.

The configuration is saved to ~/.config/ofs/ofs.ini unless --config is given.
Use --force to overwrite an existing file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Fprintln(out, "OFS Client Configuration Setup")
			fmt.Fprintln(out, "==============================")
			fmt.Fprintln(out)

			cfg, err := promptConfig(newPrompter(cmd.InOrStdin(), out))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Fprintf(out, "\nConfiguration saved to: %s\n", path)
			GetLogger().Debug().Str("path", path).Msg("configuration written")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// promptConfig asks for each setting, offering the defaults.
func promptConfig(p *prompter) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	if cfg.Server.Host, err = p.Line("Server host", cfg.Server.Host); err != nil {
		return nil, err
	}
	if cfg.Server.Port, err = promptInt(p, "Server port", cfg.Server.Port); err != nil {
		return nil, err
	}
	if cfg.Server.TimeoutSeconds, err = promptInt(p, "Call timeout (seconds)", cfg.Server.TimeoutSeconds); err != nil {
		return nil, err
	}
	if cfg.Client.Username, err = p.Line("Default username", constants.LoginUsernameDefault); err != nil {
		return nil, err
	}

	useProxy, err := p.Confirm("Connect through a SOCKS5 proxy?")
	if err != nil {
		return nil, err
	}
	if useProxy {
		cfg.Proxy.Mode = constants.ProxyModeSOCKS5
		if cfg.Proxy.Address, err = p.Line("Proxy address (host:port)", "127.0.0.1:1080"); err != nil {
			return nil, err
		}
		if cfg.Proxy.Username, err = p.Line("Proxy username (optional)", ""); err != nil {
			return nil, err
		}
		if cfg.Proxy.Username != "" {
			if cfg.Proxy.Password, err = p.Password("Proxy password"); err != nil {
				return nil, err
			}
		}
		if cfg.Proxy.NoProxy, err = p.Line("Hosts that bypass the proxy", "localhost,127.0.0.1"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func promptInt(p *prompter, label string, def int) (int, error) {
	for {
		answer, err := p.Line(label, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil {
			return n, nil
		}
		fmt.Fprintf(p.out, "Not a number: %s\n", answer)
	}
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long:  `Display the configuration after applying command-line overrides.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, _ := configPath()
			printConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg *config.Config, path string) {
	source := path
	if _, err := os.Stat(path); err != nil {
		source = path + " (not found, using defaults)"
	}
	fmt.Fprintf(w, "Config file: %s\n\n", source)

	fmt.Fprintln(w, "[server]")
	fmt.Fprintf(w, "  host:            %s\n", cfg.Server.Host)
	fmt.Fprintf(w, "  port:            %d\n", cfg.Server.Port)
	fmt.Fprintf(w, "  timeout_seconds: %d\n", cfg.Server.TimeoutSeconds)

	fmt.Fprintln(w, "[proxy]")
	fmt.Fprintf(w, "  mode:            %s\n", cfg.Proxy.Mode)
	if cfg.ProxyEnabled() {
		fmt.Fprintf(w, "  address:         %s\n", cfg.Proxy.Address)
		if cfg.Proxy.Username != "" {
			fmt.Fprintf(w, "  username:        %s\n", cfg.Proxy.Username)
			fmt.Fprintln(w, "  password:        ********")
		}
		fmt.Fprintf(w, "  no_proxy:        %s\n", cfg.Proxy.NoProxy)
	}

	fmt.Fprintln(w, "[logging]")
	fmt.Fprintf(w, "  level:           %s\n", cfg.Logging.Level)
	if file := config.LogFilePath(cfg); file != "" {
		fmt.Fprintf(w, "  file:            %s\n", file)
	}

	fmt.Fprintln(w, "[client]")
	fmt.Fprintf(w, "  username:        %s\n", cfg.Client.Username)
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
