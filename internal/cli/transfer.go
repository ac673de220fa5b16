package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/ofs-tools/ofs-client/internal/constants"
	"github.com/ofs-tools/ofs-client/internal/core"
	"github.com/ofs-tools/ofs-client/internal/diskspace"
	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/pathutil"
	"github.com/ofs-tools/ofs-client/internal/progress"
	"github.com/ofs-tools/ofs-client/internal/state"
	"github.com/ofs-tools/ofs-client/internal/validation"
)

// ErrBinaryContent is returned by put for files that are not valid UTF-8.
// File content travels as a JSON string, which cannot carry arbitrary bytes.
var ErrBinaryContent = errors.New("file is not valid UTF-8 text")

// newPutCmd creates the 'put' command.
func newPutCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "put <local-file> [remote-path]",
		Short: "Upload a local text file",
		Long: `Upload a local file into the remote tree.

The remote path defaults to the file name under /. A remote path ending
in '/' names the target directory. Existing files are only replaced with
--force.

Examples:
  ofs-client put notes.txt
  ofs-client put notes.txt /docs/
  ofs-client put notes.txt /docs/renamed.txt --force`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPath, err := pathutil.ResolveAbsolutePath(args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", args[0], err)
			}

			remote := constants.RootPath
			if len(args) == 2 {
				remote = args[1]
			}
			dir, name, err := uploadTarget(localPath, remote)
			if err != nil {
				return err
			}

			content, err := readLocalFile(localPath, progress.NewReporter(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, ctl *core.Controller) error {
				return upload(ctx, ctl, dir, name, content, force, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing remote file")
	return cmd
}

// uploadTarget works out the remote directory and name for localPath.
func uploadTarget(localPath, remote string) (string, string, error) {
	if err := validation.ValidateRemotePath(remote); err != nil {
		return "", "", err
	}
	if strings.HasSuffix(remote, constants.PathSeparator) {
		remote = state.Join(remote, filepath.Base(localPath))
	}
	dir, name, err := splitRemote(remote)
	if err != nil {
		return "", "", err
	}
	if err := validation.ValidateEntryName(name); err != nil {
		return "", "", err
	}
	return dir, name, nil
}

// readLocalFile reads a regular text file, reporting progress to rep.
func readLocalFile(localPath string, rep progress.Reporter) (string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", localPath)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	rep.Start(info.Size(), "Reading "+filepath.Base(localPath))
	data, err := io.ReadAll(progress.NewProgressReader(f, rep))
	rep.Finish()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %w", localPath, ErrBinaryContent)
	}
	return string(data), nil
}

func upload(ctx context.Context, ctl *core.Controller, dir, name, content string, force bool, out io.Writer) error {
	if err := ctl.GoTo(ctx, dir); err != nil {
		return err
	}
	target := state.Join(dir, name)

	existing, found := findEntry(ctl, name)
	switch {
	case found && existing.IsDir():
		return fmt.Errorf("%s is a directory", target)
	case found && !force:
		return fmt.Errorf("%s already exists (use --force to replace it)", target)
	case found:
		if err := ctl.EditFile(ctx, target, content); err != nil {
			return err
		}
	default:
		if err := ctl.CreateFile(ctx, name, content); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Uploaded %s to %s\n", progress.FormatBytes(int64(len(content))), target)
	return nil
}

// newGetCmd creates the 'get' command.
func newGetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "get <remote-path> [local-path]",
		Short: "Download a remote file",
		Long: `Download a remote file to the local file system.

The local path defaults to the remote file name in the current directory.
An existing local directory receives the file under its remote name.
Existing local files are only replaced with --force.

Examples:
  ofs-client get /docs/notes.txt
  ofs-client get /docs/notes.txt ~/Downloads/`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, name, err := splitRemote(args[0])
			if err != nil {
				return err
			}
			localPath, err := downloadTarget(name, args[1:])
			if err != nil {
				return err
			}
			if !force {
				if _, err := os.Stat(localPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to replace it)", localPath)
				}
			}

			return withSession(cmd, func(ctx context.Context, ctl *core.Controller) error {
				content, err := ctl.ReadFile(ctx, args[0])
				if err != nil {
					return err
				}
				if err := diskspace.Check(localPath, int64(len(content))); err != nil {
					return err
				}
				if err := writeLocalFile(localPath, content, progress.NewReporter(cmd.ErrOrStderr())); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s to %s\n", progress.FormatBytes(int64(len(content))), localPath)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing local file")
	return cmd
}

// downloadTarget picks the local file for a remote file called name.
func downloadTarget(name string, args []string) (string, error) {
	if err := validation.ValidateLocalFilename(name); err != nil {
		return "", err
	}
	if len(args) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		target := filepath.Join(cwd, name)
		if err := validation.ValidatePathInDirectory(target, cwd); err != nil {
			return "", err
		}
		return target, nil
	}

	localPath, err := pathutil.ResolveAbsolutePath(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	if info, err := os.Stat(localPath); err == nil && info.IsDir() {
		target := filepath.Join(localPath, name)
		if err := validation.ValidatePathInDirectory(target, localPath); err != nil {
			return "", err
		}
		return target, nil
	}
	return localPath, nil
}

// writeLocalFile writes content through a temp file and renames it into place.
func writeLocalFile(localPath, content string, rep progress.Reporter) error {
	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	rep.Start(int64(len(content)), "Writing "+filepath.Base(localPath))
	_, err = io.Copy(progress.NewProgressWriter(tmp, rep), strings.NewReader(content))
	rep.Finish()
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func findEntry(ctl *core.Controller, name string) (models.DirectoryEntry, bool) {
	for _, e := range ctl.Entries() {
		if e.Name == name {
			return e, true
		}
	}
	return models.DirectoryEntry{}, false
}
