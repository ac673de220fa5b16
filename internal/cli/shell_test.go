package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ofs-tools/ofs-client/internal/core"
	"github.com/ofs-tools/ofs-client/internal/protocol"
	"github.com/ofs-tools/ofs-client/internal/protocol/protocoltest"
)

func runShell(t *testing.T, srv *protocoltest.Server, script string) string {
	t.Helper()
	engine := core.NewEngineWithCaller(srv, nil)
	t.Cleanup(engine.Close)

	var out bytes.Buffer
	sh := NewShell(engine, strings.NewReader(script), &out, "admin")
	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("shell returned error: %v", err)
	}
	return out.String()
}

func TestShellSession(t *testing.T) {
	srv := protocoltest.NewServer()
	script := strings.Join([]string{
		"",      // default username
		"admin", // password
		"mkdir docs",
		"cd docs",
		"pwd",
		`touch a.txt "hello world"`,
		"cat a.txt",
		"ls",
		"up",
		"pwd",
		"rm -f docs",
		"exit",
	}, "\n") + "\n"

	out := runShell(t, srv, script)

	for _, want := range []string{
		"Logged in as admin (admin)",
		"/docs\n",
		"hello world\n",
		"a.txt",
		"Error: directory not empty: /docs",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got, _ := srv.Content("/docs/a.txt"); got != "hello world" {
		t.Errorf("remote content = %q", got)
	}
	if srv.Count(protocol.OpUserLogout) != 1 {
		t.Errorf("expected logout on exit, got %d", srv.Count(protocol.OpUserLogout))
	}
}

func TestShellRetriesFailedLogin(t *testing.T) {
	srv := protocoltest.NewServer()
	out := runShell(t, srv, "admin\nwrong\nadmin\nadmin\nwhoami\nexit\n")

	if !strings.Contains(out, "Login failed: invalid username or password") {
		t.Errorf("expected login failure message:\n%s", out)
	}
	if !strings.Contains(out, "admin (admin)\n") {
		t.Errorf("expected whoami output:\n%s", out)
	}
}

func TestShellNormalUser(t *testing.T) {
	srv := protocoltest.NewServer()
	srv.AddUser("bob", "pw", "normal")
	out := runShell(t, srv, "bob\npw\nstats\nhelp\nexit\n")

	if !strings.Contains(out, "Error: action not permitted") {
		t.Errorf("expected permission error:\n%s", out)
	}
	if !strings.Contains(out, "(not permitted)") {
		t.Errorf("help should mark admin commands:\n%s", out)
	}
	if srv.Count(protocol.OpGetStats) != 0 {
		t.Error("stats must not reach the server")
	}
}

func TestShellLogoutReturnsToLogin(t *testing.T) {
	srv := protocoltest.NewServer()
	out := runShell(t, srv, "admin\nadmin\nlogout\n")

	if !strings.Contains(out, "Logged out") {
		t.Errorf("expected logout message:\n%s", out)
	}
	if n := strings.Count(out, "Username [admin]:"); n != 2 {
		t.Errorf("expected a second login prompt, saw %d:\n%s", n, out)
	}
	if srv.Count(protocol.OpUserLogout) != 1 {
		t.Errorf("logout calls = %d", srv.Count(protocol.OpUserLogout))
	}
}

func TestShellEndOfInputLogsOut(t *testing.T) {
	srv := protocoltest.NewServer()
	runShell(t, srv, "admin\nadmin\nls\n")

	if srv.Count(protocol.OpUserLogout) != 1 {
		t.Errorf("expected logout at end of input, got %d", srv.Count(protocol.OpUserLogout))
	}
}

func TestShellRmConfirmation(t *testing.T) {
	srv := protocoltest.NewServer()
	srv.AddFile("/keep.txt", "k")
	out := runShell(t, srv, "admin\nadmin\nrm keep.txt\nn\nexit\n")

	if !strings.Contains(out, "Delete /keep.txt? [y/N]: Cancelled") {
		t.Errorf("expected cancelled confirmation:\n%s", out)
	}
	if !srv.Exists("/keep.txt") {
		t.Error("file should not be deleted")
	}
}

func TestShellErrors(t *testing.T) {
	srv := protocoltest.NewServer()
	srv.AddFile("/f.txt", "")
	out := runShell(t, srv, "admin\nadmin\nbogus\ncd\ncd f.txt\nchmod 999 f.txt\nuserdel admin\ny\n\"open\nexit\n")

	for _, want := range []string{
		`unknown command "bogus"`,
		"usage: cd <dir|path|..>",
		"not a directory: f.txt",
		"permissions must be an octal value",
		"Error: the admin account cannot be deleted",
		"unterminated quote",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if srv.Count(protocol.OpUserDelete) != 0 {
		t.Error("admin deletion must not reach the server")
	}
}

func TestShellUserAdmin(t *testing.T) {
	srv := protocoltest.NewServer()
	out := runShell(t, srv, "admin\nadmin\nuseradd carol admin\nsecret\nusers\nstats\nexit\n")

	if !strings.Contains(out, "Created user carol (admin)") {
		t.Errorf("expected creation message:\n%s", out)
	}
	if !strings.Contains(out, "carol") || !strings.Contains(out, "Active") {
		t.Errorf("expected user table:\n%s", out)
	}
	if !strings.Contains(out, "Usage:") || !strings.Contains(out, "Users:       2") {
		t.Errorf("expected stats output:\n%s", out)
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{"", nil, false},
		{"  ls  ", []string{"ls"}, false},
		{"touch a.txt hello world", []string{"touch", "a.txt", "hello", "world"}, false},
		{`touch "my file" 'it''s'`, []string{"touch", "my file", "its"}, false},
		{`edit a "say \"hi\""`, []string{"edit", "a", `say "hi"`}, false},
		{`touch ""`, []string{"touch", ""}, false},
		{`a\ b`, []string{"a b"}, false},
		{`"open`, nil, true},
		{`trailing\`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitArgs(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("splitArgs(%q) = %q, want %q", tt.line, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitArgs(%q)[%d] = %q, want %q", tt.line, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWriteTableWideRunes(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, []string{"NAME", "X"}, [][]string{{"日本", "1"}, {"ab", "2"}})

	want := "NAME  X\n日本  1\nab    2\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestShellErrCode(t *testing.T) {
	srv := protocoltest.NewServer()
	out := runShell(t, srv, "admin\nadmin\nerrcode 3\nerrcode x\nexit\n")

	if !strings.Contains(out, "3: error 3\n") {
		t.Errorf("expected error text:\n%s", out)
	}
	if !strings.Contains(out, "Error: not an error code: x") {
		t.Errorf("expected parse error:\n%s", out)
	}
}
