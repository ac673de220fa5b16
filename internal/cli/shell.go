package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ofs-tools/ofs-client/internal/constants"
	"github.com/ofs-tools/ofs-client/internal/core"
	"github.com/ofs-tools/ofs-client/internal/events"
	"github.com/ofs-tools/ofs-client/internal/logging"
	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/state"
	"github.com/ofs-tools/ofs-client/internal/validation"
)

// newShellCmd creates the 'shell' command.
func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: `Log in and browse the remote file system interactively.

Type 'help' at the prompt for the list of commands. The session is
logged out on 'exit', end of input or Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			user := cfg.Client.Username
			if user == "" {
				user = constants.LoginUsernameDefault
			}
			sh := NewShell(engine, cmd.InOrStdin(), cmd.OutOrStdout(), user)
			if passFlag != "" {
				sh.password = passFlag
			}
			return sh.Run(GetContext(cmd))
		},
	}
}

// shellCommand is one command of the interactive shell.
type shellCommand struct {
	usage   string
	help    string
	minArgs int
	maxArgs int // -1 for no limit
	run     func(ctx context.Context, args []string) error
}

// Shell runs the controller interactively: a login prompt while logged
// out, a command loop while logged in.
type Shell struct {
	ctl      *core.Controller
	prompt   *prompter
	out      io.Writer
	logger   *logging.Logger
	username string
	password string // used once for the first login, then prompted
	commands map[string]*shellCommand
	done     bool
}

// NewShell creates a shell over engine reading commands from in.
func NewShell(engine *core.Engine, in io.Reader, out io.Writer, username string) *Shell {
	s := &Shell{
		ctl:      core.NewController(engine),
		prompt:   newPrompter(in, out),
		out:      out,
		logger:   engine.Logger().Named("shell"),
		username: username,
	}
	s.registerCommands()
	go s.watch(engine.Events().SubscribeAll())
	return s
}

// watch logs state changes until the event bus is closed.
func (s *Shell) watch(ch <-chan events.Event) {
	for ev := range ch {
		switch e := ev.(type) {
		case *events.ViewChangedEvent:
			s.logger.Debug().Str("from", e.From).Str("to", e.To).Msg("view changed")
		case *events.SessionChangedEvent:
			s.logger.Debug().Bool("authenticated", e.Authenticated).Str("user", e.Username).Msg("session changed")
		case *events.OperationFailedEvent:
			s.logger.Debug().Str("action", e.Operation).Str("error", e.Message).Msg("operation failed")
		case *state.PathChangedEvent:
			s.logger.Debug().Str("from", e.From).Str("to", e.To).Msg("path changed")
		case *state.ListingChangedEvent:
			s.logger.Debug().Str("path", e.Path).Int("entries", len(e.Entries)).Msg("listing changed")
		}
	}
}

// Run loops until exit, end of input or ctx is cancelled. The session is
// logged out before returning.
func (s *Shell) Run(ctx context.Context) error {
	defer s.leave()

	for !s.done {
		if ctx.Err() != nil {
			return nil
		}
		if s.ctl.View() == core.LoginView {
			if err := s.login(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			continue
		}

		fmt.Fprint(s.out, s.ctl.Path()+constants.ShellPromptSuffix)
		line, err := s.prompt.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}
		args, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if err := s.Exec(ctx, args); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
	return nil
}

// login prompts for credentials until a login succeeds.
func (s *Shell) login(ctx context.Context) error {
	username, err := s.prompt.Line("Username", s.username)
	if err != nil {
		return err
	}
	password := s.password
	s.password = ""
	if password == "" {
		if password, err = s.prompt.Password("Password"); err != nil {
			return err
		}
	}
	if username == "" {
		fmt.Fprintln(s.out, "Username is required")
		return nil
	}

	if err := s.ctl.Login(ctx, username, password); err != nil {
		fmt.Fprintf(s.out, "Login failed: %v\n", err)
		return nil
	}
	s.username = username
	sess := s.ctl.Session()
	fmt.Fprintf(s.out, "Logged in as %s (%s)\n", sess.Username, sess.Role)
	if err := s.ctl.ListingErr(); err != nil {
		fmt.Fprintf(s.out, "Listing failed: %v\n", err)
	}
	return nil
}

// leave logs out a remaining session without waiting on a cancelled context.
func (s *Shell) leave() {
	if s.ctl.View() != core.MainView {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shortTimeout)
	defer cancel()
	if err := s.ctl.Logout(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("logout failed")
	}
}

// Exec runs one parsed command line.
func (s *Shell) Exec(ctx context.Context, args []string) error {
	cmd, ok := s.commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, type 'help' for a list", args[0])
	}
	n := len(args) - 1
	if n < cmd.minArgs || (cmd.maxArgs >= 0 && n > cmd.maxArgs) {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.run(ctx, args[1:])
}

func (s *Shell) registerCommands() {
	s.commands = map[string]*shellCommand{
		"ls":       {usage: "ls", help: "List the current directory", maxArgs: 0, run: s.cmdLs},
		"cd":       {usage: "cd <dir|path|..>", help: "Change directory", minArgs: 1, maxArgs: 1, run: s.cmdCd},
		"up":       {usage: "up", help: "Go to the parent directory", maxArgs: 0, run: s.cmdUp},
		"pwd":      {usage: "pwd", help: "Print the current directory", maxArgs: 0, run: s.cmdPwd},
		"refresh":  {usage: "refresh", help: "Re-list the current directory", maxArgs: 0, run: s.cmdRefresh},
		"mkdir":    {usage: "mkdir <name>", help: "Create a directory", minArgs: 1, maxArgs: 1, run: s.cmdMkdir},
		"touch":    {usage: "touch <name> [content...]", help: "Create a file, optionally with content", minArgs: 1, maxArgs: -1, run: s.cmdTouch},
		"cat":      {usage: "cat <file>", help: "Print a file", minArgs: 1, maxArgs: 1, run: s.cmdCat},
		"edit":     {usage: "edit <file> <content...>", help: "Replace the content of a file", minArgs: 2, maxArgs: -1, run: s.cmdEdit},
		"rm":       {usage: "rm [-f] <name>", help: "Delete a file or empty directory", minArgs: 1, maxArgs: 2, run: s.cmdRm},
		"mv":       {usage: "mv <file> <new-name|path>", help: "Rename or move a file", minArgs: 2, maxArgs: 2, run: s.cmdMv},
		"truncate": {usage: "truncate <file>", help: "Empty a file", minArgs: 1, maxArgs: 1, run: s.cmdTruncate},
		"chmod":    {usage: "chmod <mode> <name>", help: "Set permission bits (octal)", minArgs: 2, maxArgs: 2, run: s.cmdChmod},
		"stat":     {usage: "stat <name>", help: "Show metadata", minArgs: 1, maxArgs: 1, run: s.cmdStat},
		"users":    {usage: "users", help: "List accounts (admin)", maxArgs: 0, run: s.cmdUsers},
		"useradd":  {usage: "useradd <name> [normal|admin]", help: "Create an account (admin)", minArgs: 1, maxArgs: 2, run: s.cmdUserAdd},
		"userdel":  {usage: "userdel <name>", help: "Delete an account (admin)", minArgs: 1, maxArgs: 1, run: s.cmdUserDel},
		"stats":    {usage: "stats", help: "Show file system statistics (admin)", maxArgs: 0, run: s.cmdStats},
		"errcode":  {usage: "errcode <code>", help: "Describe a server error code", minArgs: 1, maxArgs: 1, run: s.cmdErrCode},
		"whoami":   {usage: "whoami", help: "Show the logged-in user", maxArgs: 0, run: s.cmdWhoami},
		"logout":   {usage: "logout", help: "Log out and return to the login prompt", maxArgs: 0, run: s.cmdLogout},
		"help":     {usage: "help", help: "Show this list", maxArgs: 0, run: s.cmdHelp},
		"exit":     {usage: "exit", help: "Log out and leave the shell", maxArgs: 0, run: s.cmdExit},
	}
	s.commands["quit"] = s.commands["exit"]
}

func (s *Shell) cmdLs(ctx context.Context, args []string) error {
	if err := s.ctl.Refresh(ctx); err != nil {
		return err
	}
	writeEntries(s.out, s.ctl.Entries())
	return nil
}

func (s *Shell) cmdCd(ctx context.Context, args []string) error {
	target := args[0]
	switch {
	case target == "..":
		return s.ctl.Up(ctx)
	case strings.Contains(target, constants.PathSeparator) || target == ".":
		return s.ctl.GoTo(ctx, target)
	default:
		return s.ctl.Enter(ctx, target)
	}
}

func (s *Shell) cmdUp(ctx context.Context, args []string) error {
	return s.ctl.Up(ctx)
}

func (s *Shell) cmdPwd(ctx context.Context, args []string) error {
	fmt.Fprintln(s.out, s.ctl.Path())
	return nil
}

func (s *Shell) cmdRefresh(ctx context.Context, args []string) error {
	if err := s.ctl.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d entries\n", len(s.ctl.Entries()))
	return nil
}

func (s *Shell) cmdMkdir(ctx context.Context, args []string) error {
	return s.ctl.CreateDir(ctx, args[0])
}

func (s *Shell) cmdTouch(ctx context.Context, args []string) error {
	return s.ctl.CreateFile(ctx, args[0], strings.Join(args[1:], " "))
}

func (s *Shell) cmdCat(ctx context.Context, args []string) error {
	content, err := s.ctl.ReadFile(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(s.out)
	}
	return nil
}

func (s *Shell) cmdEdit(ctx context.Context, args []string) error {
	return s.ctl.EditFile(ctx, args[0], strings.Join(args[1:], " "))
}

func (s *Shell) cmdRm(ctx context.Context, args []string) error {
	force := false
	if args[0] == "-f" {
		force = true
		args = args[1:]
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: rm [-f] <name>")
	}
	name := args[0]
	if !force {
		ok, err := s.prompt.Confirm(fmt.Sprintf("Delete %s?", state.Join(s.ctl.Path(), name)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.out, "Cancelled")
			return nil
		}
	}
	return s.ctl.Delete(ctx, name)
}

func (s *Shell) cmdMv(ctx context.Context, args []string) error {
	return s.ctl.Rename(ctx, args[0], args[1])
}

func (s *Shell) cmdTruncate(ctx context.Context, args []string) error {
	return s.ctl.Truncate(ctx, args[0])
}

func (s *Shell) cmdChmod(ctx context.Context, args []string) error {
	perms, err := validation.ParsePermissions(args[0])
	if err != nil {
		return err
	}
	return s.ctl.SetPermissions(ctx, args[1], perms)
}

func (s *Shell) cmdStat(ctx context.Context, args []string) error {
	meta, err := s.ctl.Metadata(ctx, args[0])
	if err != nil {
		return err
	}
	writeMetadata(s.out, meta)
	return nil
}

func (s *Shell) cmdUsers(ctx context.Context, args []string) error {
	users, err := s.ctl.Users(ctx)
	if err != nil {
		return err
	}
	writeUsers(s.out, users)
	return nil
}

func (s *Shell) cmdUserAdd(ctx context.Context, args []string) error {
	role := models.RoleNormal
	if len(args) == 2 {
		role = models.Role(args[1])
		if !role.Valid() {
			return fmt.Errorf("role must be %s or %s", models.RoleNormal, models.RoleAdmin)
		}
	}
	password, err := s.prompt.Password("Password for " + args[0])
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if err := s.ctl.CreateUser(ctx, args[0], password, role); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Created user %s (%s)\n", args[0], role)
	return nil
}

func (s *Shell) cmdUserDel(ctx context.Context, args []string) error {
	ok, err := s.prompt.Confirm(fmt.Sprintf("Delete user %s?", args[0]))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.out, "Cancelled")
		return nil
	}
	return s.ctl.DeleteUser(ctx, args[0])
}

func (s *Shell) cmdStats(ctx context.Context, args []string) error {
	stats, err := s.ctl.Stats(ctx)
	if err != nil {
		return err
	}
	return writeStats(s.out, stats)
}

func (s *Shell) cmdErrCode(ctx context.Context, args []string) error {
	code, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("not an error code: %s", args[0])
	}
	msg, err := s.ctl.ExplainError(ctx, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d: %s\n", code, msg)
	return nil
}

func (s *Shell) cmdWhoami(ctx context.Context, args []string) error {
	sess := s.ctl.Session()
	fmt.Fprintf(s.out, "%s (%s)\n", sess.Username, sess.Role)
	return nil
}

func (s *Shell) cmdLogout(ctx context.Context, args []string) error {
	err := s.ctl.Logout(ctx)
	fmt.Fprintln(s.out, "Logged out")
	if err != nil {
		s.logger.Warn().Err(err).Msg("server did not confirm logout")
	}
	return nil
}

func (s *Shell) cmdHelp(ctx context.Context, args []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		if name == "quit" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		cmd := s.commands[name]
		marker := ""
		if !s.allowed(name) {
			marker = " (not permitted)"
		}
		rows = append(rows, []string{cmd.usage, cmd.help + marker})
	}
	writeTable(s.out, []string{"COMMAND", "DESCRIPTION"}, rows)
	return nil
}

// allowed reports whether the current role may run the named command.
func (s *Shell) allowed(name string) bool {
	switch name {
	case "users":
		return s.ctl.Can(core.ActionListUsers)
	case "useradd":
		return s.ctl.Can(core.ActionCreateUser)
	case "userdel":
		return s.ctl.Can(core.ActionDeleteUser)
	case "stats":
		return s.ctl.Can(core.ActionStats)
	}
	return true
}

func (s *Shell) cmdExit(ctx context.Context, args []string) error {
	s.done = true
	return nil
}

// splitArgs splits a command line on whitespace. Single or double quotes
// group words, and a backslash escapes the next character.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if escaped {
		return nil, fmt.Errorf("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
