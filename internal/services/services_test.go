package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/protocol"
	"github.com/ofs-tools/ofs-client/internal/protocol/protocoltest"
	"github.com/ofs-tools/ofs-client/internal/session"
)

// newSession logs into a fresh in-memory server as username.
func newSession(t *testing.T, srv *protocoltest.Server, username, password string) *session.Manager {
	t.Helper()
	m := session.NewManager(srv, nil)
	if _, err := m.Login(context.Background(), username, password); err != nil {
		t.Fatalf("login as %s: %v", username, err)
	}
	return m
}

// recordingInvoker counts calls and replies with a fixed response.
type recordingInvoker struct {
	calls []protocol.Operation
	resp  *protocol.Response
}

func (r *recordingInvoker) Call(_ context.Context, op protocol.Operation, _ protocol.Params) *protocol.Response {
	r.calls = append(r.calls, op)
	if r.resp != nil {
		return r.resp
	}
	return &protocol.Response{Status: protocol.StatusSuccess, Operation: op}
}

func TestCreateEditReadScenario(t *testing.T) {
	srv := protocoltest.NewServer()
	fs := NewFileService(newSession(t, srv, "admin", "admin"), nil)
	ctx := context.Background()

	if err := fs.CreateFile(ctx, "/a.txt", 5); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := fs.Edit(ctx, "/a.txt", "hello"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	content, err := fs.Read(ctx, "/a.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content != "hello" {
		t.Errorf("content = %q, want hello", content)
	}
}

func TestListIsSorted(t *testing.T) {
	srv := protocoltest.NewServer()
	srv.AddFile("/zeta.txt", "z")
	srv.AddDir("/beta")
	srv.AddFile("/alpha.txt", "a")
	srv.AddDir("/alpha")
	fs := NewFileService(newSession(t, srv, "admin", "admin"), nil)

	entries, err := fs.List(context.Background(), "/")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "beta", "alpha.txt", "zeta.txt"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Name, name)
		}
	}
	if !entries[0].IsDir() || entries[2].IsDir() {
		t.Error("directories must come first")
	}
}

func TestListRejectsMalformedEntries(t *testing.T) {
	srv := protocoltest.NewServer()
	srv.Override(protocol.OpDirList, func(req *protocol.Request) *protocol.Response {
		resp, _ := protocol.NewSuccessResponse(req.Operation, []map[string]interface{}{{"name": "x", "type": "socket"}})
		return resp
	})
	fs := NewFileService(newSession(t, srv, "admin", "admin"), nil)

	_, err := fs.List(context.Background(), "/")
	if !protocol.IsRemoteError(err) {
		t.Fatalf("expected RemoteError for malformed listing, got %v", err)
	}
}

func TestListEmptyDirectory(t *testing.T) {
	srv := protocoltest.NewServer()
	srv.Override(protocol.OpDirList, func(req *protocol.Request) *protocol.Response {
		return &protocol.Response{Status: protocol.StatusSuccess}
	})
	fs := NewFileService(newSession(t, srv, "admin", "admin"), nil)

	entries, err := fs.List(context.Background(), "/")
	if err != nil {
		t.Fatal(err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestServerErrorsPassThrough(t *testing.T) {
	srv := protocoltest.NewServer()
	fs := NewFileService(newSession(t, srv, "admin", "admin"), nil)

	err := fs.CreateDir(context.Background(), "/missing/child")
	var re *protocol.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Message == "" || re.Operation != protocol.OpDirCreate {
		t.Errorf("unexpected error %+v", re)
	}
}

func TestFileLifecycle(t *testing.T) {
	srv := protocoltest.NewServer()
	fs := NewFileService(newSession(t, srv, "admin", "admin"), nil)
	ctx := context.Background()

	if err := fs.CreateDir(ctx, "/docs"); err != nil {
		t.Fatal(err)
	}
	if ok, err := fs.DirExists(ctx, "/docs"); !ok || err != nil {
		t.Errorf("DirExists = %v, %v", ok, err)
	}
	if ok, _ := fs.DirExists(ctx, "/nope"); ok {
		t.Error("DirExists(/nope) should be false")
	}

	if err := fs.CreateFileWithContent(ctx, "/docs/a.txt", "data"); err != nil {
		t.Fatal(err)
	}
	if ok, err := fs.FileExists(ctx, "/docs/a.txt"); !ok || err != nil {
		t.Errorf("FileExists = %v, %v", ok, err)
	}

	if err := fs.Rename(ctx, "/docs/a.txt", "/docs/b.txt"); err != nil {
		t.Fatal(err)
	}
	if srv.Exists("/docs/a.txt") || !srv.Exists("/docs/b.txt") {
		t.Error("rename did not move the file")
	}

	if err := fs.SetPermissions(ctx, "/docs/b.txt", 0600); err != nil {
		t.Fatal(err)
	}
	meta, err := fs.Metadata(ctx, "/docs/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if meta.Path != "/docs/b.txt" || meta.Entry.Name != "b.txt" || meta.Entry.Size != 4 || meta.Entry.Permissions != 0600 {
		t.Errorf("unexpected metadata %+v", meta)
	}

	if err := fs.Truncate(ctx, "/docs/b.txt"); err != nil {
		t.Fatal(err)
	}
	if c, _ := srv.Content("/docs/b.txt"); c != "" {
		t.Errorf("truncate left %q", c)
	}

	if err := fs.DeleteFile(ctx, "/docs/b.txt"); err != nil {
		t.Fatal(err)
	}
	if err := fs.DeleteDir(ctx, "/docs"); err != nil {
		t.Fatal(err)
	}
	if srv.Exists("/docs") {
		t.Error("directory still exists")
	}
}

func TestCreateFileWithEmptyContentSkipsEdit(t *testing.T) {
	inv := &recordingInvoker{}
	fs := NewFileService(inv, nil)

	if err := fs.CreateFileWithContent(context.Background(), "/empty.txt", ""); err != nil {
		t.Fatal(err)
	}
	if len(inv.calls) != 1 || inv.calls[0] != protocol.OpFileCreate {
		t.Errorf("expected only file_create, got %v", inv.calls)
	}
}

func TestLocalValidationMakesNoCall(t *testing.T) {
	inv := &recordingInvoker{}
	fs := NewFileService(inv, nil)
	ctx := context.Background()

	if err := fs.CreateDir(ctx, "relative"); err == nil {
		t.Error("expected error for relative path")
	}
	if err := fs.CreateFile(ctx, "/x", -1); err == nil {
		t.Error("expected error for negative size")
	}
	if err := fs.SetPermissions(ctx, "/x", 01777); err == nil {
		t.Error("expected error for out-of-range permissions")
	}
	if len(inv.calls) != 0 {
		t.Errorf("expected no calls, got %v", inv.calls)
	}
}

func TestDeleteAdminRejectedBeforeCall(t *testing.T) {
	inv := &recordingInvoker{}
	us := NewUserService(inv, nil)

	err := us.Delete(context.Background(), "admin")
	if !errors.Is(err, ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", err)
	}
	if len(inv.calls) != 0 {
		t.Errorf("expected no network call, got %v", inv.calls)
	}
}

func TestUserManagement(t *testing.T) {
	srv := protocoltest.NewServer()
	us := NewUserService(newSession(t, srv, "admin", "admin"), nil)
	ctx := context.Background()

	if err := us.Create(ctx, "alice", "pw", models.RoleNormal); err != nil {
		t.Fatal(err)
	}
	if err := us.Create(ctx, "alice", "pw", models.RoleNormal); err == nil {
		t.Error("expected duplicate username to be rejected by the server")
	}

	users, err := us.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[1].Username != "alice" || users[1].Role != "normal" || users[1].Status() != "Active" {
		t.Errorf("unexpected users %+v", users)
	}

	if err := us.Delete(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if users, _ := us.List(ctx); len(users) != 1 {
		t.Errorf("expected only admin left, got %+v", users)
	}
}

func TestAdminOperationsRejectedForNormalUser(t *testing.T) {
	srv := protocoltest.NewServer()
	srv.AddUser("bob", "pw", "normal")
	inv := newSession(t, srv, "bob", "pw")

	_, err := NewUserService(inv, nil).List(context.Background())
	var re *protocol.RemoteError
	if !errors.As(err, &re) || re.Message != "permission denied" {
		t.Errorf("expected server rejection as ordinary error, got %v", err)
	}
}

func TestStatsZeroTotal(t *testing.T) {
	srv := protocoltest.NewServer()
	srv.TotalSize = 0
	ss := NewSystemService(newSession(t, srv, "admin", "admin"), nil)

	stats, err := ss.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSize != 0 {
		t.Fatalf("total = %d", stats.TotalSize)
	}
	if stats.UsagePercent() != 0 {
		t.Errorf("usage = %d, want 0", stats.UsagePercent())
	}
}

func TestStats(t *testing.T) {
	srv := protocoltest.NewServer()
	srv.TotalSize = 100
	srv.AddFile("/a", "0123456789")
	ss := NewSystemService(newSession(t, srv, "admin", "admin"), nil)

	stats, err := ss.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.UsedSpace != 10 || stats.FreeSpace != 90 || stats.TotalFiles != 1 || stats.TotalUsers != 1 || stats.ActiveSessions != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.UsagePercent() != 10 {
		t.Errorf("usage = %d, want 10", stats.UsagePercent())
	}
}

func TestStatsMalformed(t *testing.T) {
	inv := &recordingInvoker{resp: &protocol.Response{Status: protocol.StatusSuccess, Data: []byte(`{"total_size":10,"used_space":50}`)}}
	_, err := NewSystemService(inv, nil).Stats(context.Background())
	if !protocol.IsRemoteError(err) {
		t.Errorf("expected RemoteError for inconsistent stats, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	srv := protocoltest.NewServer()
	ss := NewSystemService(session.NewManager(srv, nil), nil)

	msg, err := ss.ErrorMessage(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "error 4" {
		t.Errorf("msg = %q", msg)
	}
}
