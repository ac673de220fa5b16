package cli

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ofs-tools/ofs-client/internal/config"
	"github.com/ofs-tools/ofs-client/internal/protocol"
	"github.com/ofs-tools/ofs-client/internal/protocol/protocoltest"
)

// runCLI executes the root command against srv with admin credentials.
func runCLI(t *testing.T, srv *protocoltest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	host, port, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatal(err)
	}
	base := []string{
		"--config", filepath.Join(t.TempDir(), "missing.ini"),
		"--host", host, "--port", port,
		"--user", "admin", "--password", "admin",
	}

	root := NewRootCmd()
	AddCommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(base, args...))
	err = root.Execute()
	return out.String(), err
}

func TestLsCommand(t *testing.T) {
	srv := protocoltest.Start(t)
	srv.AddDir("/docs/reports")
	srv.AddFile("/docs/a.txt", "abc")

	out, err := runCLI(t, srv, "", "ls", "/docs")
	if err != nil {
		t.Fatal(err)
	}
	// directories first
	if !strings.Contains(out, "reports/") || !strings.Contains(out, "a.txt") ||
		strings.Index(out, "reports/") > strings.Index(out, "a.txt") {
		t.Errorf("unexpected listing:\n%s", out)
	}
	if srv.Count(protocol.OpUserLogin) != 1 || srv.Count(protocol.OpUserLogout) != 1 {
		t.Errorf("expected one login and one logout, got %d/%d",
			srv.Count(protocol.OpUserLogin), srv.Count(protocol.OpUserLogout))
	}
}

func TestLsCommandMissingDirectory(t *testing.T) {
	srv := protocoltest.Start(t)
	if _, err := runCLI(t, srv, "", "ls", "/nowhere"); err == nil {
		t.Error("expected an error for a missing directory")
	}
	if srv.Count(protocol.OpUserLogout) != 1 {
		t.Error("session should be logged out after a failure")
	}
}

func TestCatCommand(t *testing.T) {
	srv := protocoltest.Start(t)
	srv.AddFile("/notes.txt", "line one\n")

	out, err := runCLI(t, srv, "", "cat", "/notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if out != "line one\n" {
		t.Errorf("cat printed %q", out)
	}
}

func TestLoginFailure(t *testing.T) {
	srv := protocoltest.Start(t)
	srv.AddUser("bob", "pw", "normal")
	host, port, _ := net.SplitHostPort(srv.Addr())

	root := NewRootCmd()
	AddCommands(root)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "x.ini"), "--host", host, "--port", port,
		"--user", "bob", "--password", "nope", "ls"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "login failed") {
		t.Errorf("expected login failure, got %v", err)
	}
}

func TestPutAndGet(t *testing.T) {
	srv := protocoltest.Start(t)
	srv.AddDir("/docs")
	dir := t.TempDir()
	local := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(local, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, srv, "", "put", local, "/docs/")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Uploaded 5 B to /docs/notes.txt") {
		t.Errorf("unexpected output %q", out)
	}
	if got, _ := srv.Content("/docs/notes.txt"); got != "hello" {
		t.Fatalf("remote content = %q", got)
	}

	if _, err := runCLI(t, srv, "", "put", local, "/docs/"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second put without --force = %v", err)
	}
	if err := os.WriteFile(local, []byte("changed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, srv, "", "put", "--force", local, "/docs/notes.txt"); err != nil {
		t.Fatal(err)
	}
	if got, _ := srv.Content("/docs/notes.txt"); got != "changed" {
		t.Errorf("remote content after --force = %q", got)
	}

	downloads := filepath.Join(dir, "downloads")
	if err := os.Mkdir(downloads, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, srv, "", "get", "/docs/notes.txt", downloads); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(downloads, "notes.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "changed" {
		t.Errorf("downloaded %q", data)
	}

	if _, err := runCLI(t, srv, "", "get", "/docs/notes.txt", downloads); err == nil {
		t.Error("get must not overwrite without --force")
	}
}

func TestPutRejectsBinary(t *testing.T) {
	srv := protocoltest.Start(t)
	local := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(local, []byte{0xff, 0xfe, 0x00}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, srv, "", "put", local); err == nil || !strings.Contains(err.Error(), "UTF-8") {
		t.Errorf("expected binary rejection, got %v", err)
	}
	if srv.Count(protocol.OpUserLogin) != 0 {
		t.Error("nothing should be sent for a rejected file")
	}
}

func TestMkdirAndRm(t *testing.T) {
	srv := protocoltest.Start(t)

	if _, err := runCLI(t, srv, "", "mkdir", "/projects"); err != nil {
		t.Fatal(err)
	}
	if !srv.Exists("/projects") {
		t.Fatal("directory not created")
	}

	out, err := runCLI(t, srv, "n\n", "rm", "/projects")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cancelled") || !srv.Exists("/projects") {
		t.Errorf("declined rm should keep the directory: %q", out)
	}

	if _, err := runCLI(t, srv, "y\n", "rm", "/projects"); err != nil {
		t.Fatal(err)
	}
	if srv.Exists("/projects") {
		t.Error("directory not deleted")
	}
}

func TestStatsAndUsers(t *testing.T) {
	srv := protocoltest.Start(t)
	srv.AddFile("/a.txt", "12345")

	out, err := runCLI(t, srv, "", "stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Usage: 0%") || !strings.Contains(out, "Files:       1") {
		t.Errorf("unexpected stats output:\n%s", out)
	}

	out, err = runCLI(t, srv, "", "users")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "USERNAME") || !strings.Contains(out, "admin") {
		t.Errorf("unexpected users output:\n%s", out)
	}
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ofs.ini")
	run := func(stdin string, args ...string) string {
		t.Helper()
		root := NewRootCmd()
		AddCommands(root)
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(io.Discard)
		root.SetIn(strings.NewReader(stdin))
		root.SetArgs(append([]string{"--config", path}, args...))
		if err := root.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return out.String()
	}

	if got := run("", "config", "path"); strings.TrimSpace(got) != path {
		t.Errorf("config path = %q", got)
	}

	// host, port, timeout, username, proxy?
	run("\n9000\n\nbob\nn\n", "config", "init")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 || cfg.Client.Username != "bob" || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("unexpected saved config %+v", cfg)
	}

	out := run("", "config", "show")
	if !strings.Contains(out, "port:            9000") || !strings.Contains(out, "username:        bob") {
		t.Errorf("unexpected config show:\n%s", out)
	}

	if got := run("", "config", "init"); !strings.Contains(got, "already exists") {
		t.Errorf("init without --force should refuse: %q", got)
	}
}

func TestCommandDefinitions(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)

	for _, name := range []string{"shell", "ls", "cat", "put", "get", "mkdir", "rm", "stats", "users", "config", "completion"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
			continue
		}
		if cmd.Short == "" {
			t.Errorf("%s has no short description", name)
		}
	}

	for _, flag := range []string{"config", "host", "port", "timeout", "user", "password", "verbose", "debug"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("--%s flag not found", flag)
		}
	}

	rm, _, _ := root.Find([]string{"rm"})
	if rm.Flags().Lookup("force") == nil {
		t.Error("rm --force flag not found")
	}
}
