package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ofs-tools/ofs-client/internal/config"
	"github.com/ofs-tools/ofs-client/internal/constants"
	"github.com/ofs-tools/ofs-client/internal/core"
	"github.com/ofs-tools/ofs-client/internal/state"
	"github.com/ofs-tools/ofs-client/internal/validation"
)

// withSession logs in, runs fn and logs out again. Logout runs on its own
// short deadline so it still happens after Ctrl+C.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, ctl *core.Controller) error) error {
	engine, cfg, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	username, password, err := credentials(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := GetContext(cmd)
	ctl := core.NewController(engine)
	if err := ctl.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	GetLogger().Debug().Str("user", username).Msg("logged in")

	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), shortTimeout)
		defer cancel()
		if err := ctl.Logout(logoutCtx); err != nil {
			GetLogger().Warn().Err(err).Msg("logout failed")
		}
	}()

	return fn(ctx, ctl)
}

// credentials resolves the login from flags, the environment and the
// config, prompting for whatever is still missing.
func credentials(cmd *cobra.Command, cfg *config.Config) (string, string, error) {
	prompt := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

	username := cfg.Client.Username
	if username == "" {
		var err error
		username, err = prompt.Line("Username", constants.LoginUsernameDefault)
		if err != nil {
			return "", "", fmt.Errorf("failed to read username: %w", err)
		}
	}

	password := passFlag
	if password == "" {
		password = os.Getenv(constants.PasswordEnvVar)
	}
	if password == "" {
		var err error
		password, err = prompt.Password("Password for " + username)
		if err != nil {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
	}
	return username, password, nil
}

// splitRemote normalizes p and returns its parent directory and base name.
func splitRemote(p string) (string, string, error) {
	if err := validation.ValidateRemotePath(p); err != nil {
		return "", "", err
	}
	p = state.Normalize(p)
	if p == constants.RootPath {
		return "", "", errors.New("the root directory cannot be used here")
	}
	return state.Parent(p), state.Base(p), nil
}

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Long: `List the entries of a remote directory, directories first.

Examples:
  ofs-client ls
  ofs-client ls /docs --user alice`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := constants.RootPath
			if len(args) == 1 {
				dir = args[0]
				if err := validation.ValidateRemotePath(dir); err != nil {
					return err
				}
			}
			return withSession(cmd, func(ctx context.Context, ctl *core.Controller) error {
				if dir != constants.RootPath || ctl.ListingErr() != nil {
					if err := ctl.GoTo(ctx, dir); err != nil {
						return err
					}
				}
				writeEntries(cmd.OutOrStdout(), ctl.Entries())
				return nil
			})
		},
	}
}

// newCatCmd creates the 'cat' command.
func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateRemotePath(args[0]); err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, ctl *core.Controller) error {
				content, err := ctl.ReadFile(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), content)
				return err
			})
		},
	}
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a remote directory",
		Long: `Create a directory. The parent directory must already exist.

Example:
  ofs-client mkdir /docs/reports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, name, err := splitRemote(args[0])
			if err != nil {
				return err
			}
			if err := validation.ValidateEntryName(name); err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, ctl *core.Controller) error {
				if err := ctl.GoTo(ctx, dir); err != nil {
					return err
				}
				if err := ctl.CreateDir(ctx, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", state.Join(dir, name))
				return nil
			})
		},
	}
}

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a remote file or empty directory",
		Long: `Delete a file or an empty directory. You are asked for confirmation
unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, name, err := splitRemote(args[0])
			if err != nil {
				return err
			}
			target := state.Join(dir, name)
			if !force {
				prompt := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				ok, err := prompt.Confirm(fmt.Sprintf("Delete %s?", target))
				if err != nil {
					return fmt.Errorf("failed to read confirmation: %w", err)
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}
			return withSession(cmd, func(ctx context.Context, ctl *core.Controller) error {
				if err := ctl.GoTo(ctx, dir); err != nil {
					return err
				}
				if err := ctl.Delete(ctx, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", target)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without confirmation")
	return cmd
}

// newStatsCmd creates the 'stats' command.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show file system statistics (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, ctl *core.Controller) error {
				stats, err := ctl.Stats(ctx)
				if err != nil {
					return err
				}
				return writeStats(cmd.OutOrStdout(), stats)
			})
		},
	}
}

// newUsersCmd creates the 'users' command.
func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, ctl *core.Controller) error {
				users, err := ctl.Users(ctx)
				if err != nil {
					return err
				}
				writeUsers(cmd.OutOrStdout(), users)
				return nil
			})
		},
	}
}
