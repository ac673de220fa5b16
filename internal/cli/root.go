// Package cli provides the command-line interface for ofs-client.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ofs-tools/ofs-client/internal/config"
	"github.com/ofs-tools/ofs-client/internal/core"
	"github.com/ofs-tools/ofs-client/internal/logging"
	"github.com/ofs-tools/ofs-client/internal/version"
)

var (
	// Global flags
	cfgFile     string
	hostFlag    string
	portFlag    int
	timeoutFlag int
	userFlag    string
	passFlag    string
	verbose     bool
	debug       bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ofs-client",
		Short: "Client for the OFS file system server",
		Long: `ofs-client ` + version.Version + ` - Built: ` + version.BuildTime + `
Command-line client for an OFS server.

Interactive mode:
  ofs-client shell

One-shot commands log in, run one action and log out:
  ofs-client ls /docs --user alice
  ofs-client put report.txt /docs/report.txt`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Close()
			}
		},
	}

	// Reset bound globals so repeated construction (tests) starts clean
	cfgFile, hostFlag, userFlag, passFlag = "", "", "", ""
	portFlag, timeoutFlag = 0, 0
	verbose, debug = false, false

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default ~/.config/ofs/ofs.ini)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "OFS server host (overrides config)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "OFS server port (overrides config)")
	rootCmd.PersistentFlags().IntVar(&timeoutFlag, "timeout", 0, "Per-call timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Username to log in with")
	rootCmd.PersistentFlags().StringVar(&passFlag, "password", "", "Password (prompted when omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for your shell.

  bash:       source <(ofs-client completion bash)
  zsh:        ofs-client completion zsh > "${fpath[1]}/_ofs-client"
  fish:       ofs-client completion fish | source
  powershell: ofs-client completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletion(out)
			}
			return fmt.Errorf("unsupported shell: %s", args[0])
		},
	}
	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// setupLogger builds the global logger from flags and the [logging] section.
// A broken config file is reported later by the command that loads it.
func setupLogger(cmd *cobra.Command) error {
	logger = logging.NewLogger("cli", cmd.ErrOrStderr())

	level := zerolog.InfoLevel
	if cfg, err := loadConfig(); err == nil {
		if lvl, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			level = lvl
		}
		logger.EnableFile(config.LogFilePath(cfg))
	}
	if verbose || debug {
		level = zerolog.DebugLevel
	}
	logging.SetGlobalLevel(level)
	return nil
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C does not block the sender
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.ExecuteContext(rootContext)

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newShellCmd())
	rootCmd.AddCommand(newConfigCmd())

	// One-shot commands
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newCatCmd())
	rootCmd.AddCommand(newPutCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newUsersCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the context of the running command, cancelled on Ctrl+C.
func GetContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig reads the config file and applies flag overrides.
// Priority: flags > config file > defaults.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if hostFlag != "" {
		cfg.Server.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}
	if timeoutFlag != 0 {
		cfg.Server.TimeoutSeconds = timeoutFlag
	}
	if userFlag != "" {
		cfg.Client.Username = userFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newEngine loads the configuration and builds an engine for it.
func newEngine() (*core.Engine, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	engine, err := core.NewEngine(cfg, GetLogger())
	if err != nil {
		return nil, nil, err
	}
	GetLogger().Debug().
		Str("server", cfg.Address()).
		Dur("timeout", cfg.Timeout()).
		Bool("proxy", cfg.ProxyEnabled()).
		Msg("engine ready")
	return engine, cfg, nil
}

// shortTimeout bounds best-effort cleanup calls such as logout on exit.
const shortTimeout = 3 * time.Second
