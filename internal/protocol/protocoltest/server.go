// Package protocoltest provides an in-memory OFS server for tests. It speaks
// the wire format over a loopback TCP listener and can also be used directly
// as a protocol.Caller.
package protocoltest

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ofs-tools/ofs-client/internal/protocol"
)

// HandlerFunc overrides the server's behaviour for one operation.
type HandlerFunc func(req *protocol.Request) *protocol.Response

type node struct {
	dir   bool
	data  []byte
	perms uint32
}

type account struct {
	password string
	role     string
	active   bool
}

// Server is a fake OFS server holding a file tree, users and sessions in memory.
type Server struct {
	mu        sync.Mutex
	nodes     map[string]*node
	users     map[string]*account
	sessions  map[string]string
	overrides map[protocol.Operation]HandlerFunc
	requests  []protocol.Request
	nextToken int

	// TotalSize is reported as total_size by get_stats.
	TotalSize int64
	// TokenKey is the data key carrying the token in user_login replies.
	TokenKey string

	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a server with an empty root directory and the
// bootstrap account admin/admin.
func NewServer() *Server {
	s := &Server{
		nodes:     map[string]*node{"/": {dir: true, perms: 0755}},
		users:     map[string]*account{"admin": {password: "admin", role: "admin", active: true}},
		sessions:  make(map[string]string),
		overrides: make(map[protocol.Operation]HandlerFunc),
		TotalSize: 1 << 20,
		TokenKey:  "session_id",
	}
	return s
}

// Start listens on 127.0.0.1:0 and serves until the test ends.
func Start(t testing.TB) *Server {
	t.Helper()
	s := NewServer()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	s.listener = ln
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Stop)
	return s
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and waits for in-flight connections.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	req, err := protocol.DecodeRequest(bufio.NewReader(conn))
	if err != nil {
		s.send(conn, protocol.NewErrorResponse("", "invalid request format"))
		return
	}
	resp := s.Handle(req)
	resp.RequestID = req.RequestID
	s.send(conn, resp)
}

func (s *Server) send(conn net.Conn, resp *protocol.Response) {
	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		return
	}
	conn.Write(data)
}

// Call implements protocol.Caller without a network hop. The request and
// response still pass through the codec so parameter types match the wire.
func (s *Server) Call(ctx context.Context, op protocol.Operation, params protocol.Params, token string) *protocol.Response {
	data, err := protocol.Encode(protocol.NewRequest(op, params, token))
	if err != nil {
		return protocol.NewErrorResponse(op, err.Error())
	}
	req, err := protocol.DecodeRequest(bufio.NewReader(strings.NewReader(string(data))))
	if err != nil {
		return protocol.NewErrorResponse(op, err.Error())
	}
	out, err := protocol.EncodeResponse(s.Handle(req))
	if err != nil {
		return protocol.NewErrorResponse(op, err.Error())
	}
	resp, err := protocol.DecodeResponse(out)
	if err != nil {
		return protocol.NewErrorResponse(op, err.Error())
	}
	return resp
}

// Override replaces the handler for op.
func (s *Server) Override(op protocol.Operation, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[op] = fn
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []protocol.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests for op were received.
func (s *Server) Count(op protocol.Operation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Operation == op {
			n++
		}
	}
	return n
}

// AddUser registers an account.
func (s *Server) AddUser(username, password, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &account{password: password, role: role, active: true}
}

// AddDir creates a directory, with parents.
func (s *Server) AddDir(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mkdirAll(path.Clean(p))
}

// AddFile creates a file with content, with parent directories.
func (s *Server) AddFile(p, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = path.Clean(p)
	s.mkdirAll(path.Dir(p))
	s.nodes[p] = &node{data: []byte(content), perms: 0644}
}

// Content returns the content of a file and whether it exists.
func (s *Server) Content(p string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[path.Clean(p)]
	if !ok || n.dir {
		return "", false
	}
	return string(n.data), true
}

// Exists reports whether p exists.
func (s *Server) Exists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nodes[path.Clean(p)]
	return ok
}

func (s *Server) mkdirAll(p string) {
	for cur := p; ; cur = path.Dir(cur) {
		if _, ok := s.nodes[cur]; !ok {
			s.nodes[cur] = &node{dir: true, perms: 0755}
		}
		if cur == "/" {
			return
		}
	}
}

// Handle produces the response for one decoded request.
func (s *Server) Handle(req *protocol.Request) *protocol.Response {
	s.mu.Lock()
	s.requests = append(s.requests, *req)
	fn := s.overrides[req.Operation]
	s.mu.Unlock()

	if fn != nil {
		resp := fn(req)
		if resp.Operation == "" {
			resp.Operation = req.Operation
		}
		return resp
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatch(req)
}

func fail(op protocol.Operation, format string, args ...interface{}) *protocol.Response {
	return protocol.NewErrorResponse(op, fmt.Sprintf(format, args...))
}

func ok(op protocol.Operation, data interface{}) *protocol.Response {
	resp, err := protocol.NewSuccessResponse(op, data)
	if err != nil {
		return fail(op, "%v", err)
	}
	return resp
}

func (s *Server) dispatch(req *protocol.Request) *protocol.Response {
	op := req.Operation
	if _, known := protocol.Lookup(op); !known {
		return fail(op, "unknown operation: %s", op)
	}
	if err := protocol.Validate(op, req.Parameters); err != nil {
		return fail(op, "%v", err)
	}

	switch op {
	case protocol.OpUserLogin:
		return s.login(req)
	case protocol.OpGetErrorMsg:
		code, _ := intParam(req.Parameters, "error_code")
		return ok(op, fmt.Sprintf("error %d", code))
	}

	user, authed := s.sessions[req.SessionID]
	if !authed {
		return fail(op, "not authenticated")
	}
	if spec, _ := protocol.Lookup(op); spec.AdminOnly && s.users[user].role != "admin" {
		return fail(op, "permission denied")
	}

	p := func(name string) string {
		v, _ := req.Parameters[name].(string)
		return path.Clean("/" + v)
	}

	switch op {
	case protocol.OpUserLogout:
		delete(s.sessions, req.SessionID)
		return ok(op, nil)

	case protocol.OpDirList:
		dir := p("path")
		n, exists := s.nodes[dir]
		if !exists {
			return fail(op, "directory not found: %s", dir)
		}
		if !n.dir {
			return fail(op, "not a directory: %s", dir)
		}
		return ok(op, s.children(dir))

	case protocol.OpDirCreate:
		return s.create(op, p("path"), &node{dir: true, perms: 0755})

	case protocol.OpFileCreate:
		size, _ := intParam(req.Parameters, "size")
		if size < 0 {
			return fail(op, "invalid size")
		}
		return s.create(op, p("path"), &node{data: make([]byte, size), perms: 0644})

	case protocol.OpDirDelete:
		dir := p("path")
		n, exists := s.nodes[dir]
		if !exists || !n.dir {
			return fail(op, "directory not found: %s", dir)
		}
		if dir == "/" {
			return fail(op, "cannot delete root")
		}
		if len(s.children(dir)) > 0 {
			return fail(op, "directory not empty: %s", dir)
		}
		delete(s.nodes, dir)
		return ok(op, nil)

	case protocol.OpFileDelete:
		f := p("path")
		if n, exists := s.nodes[f]; !exists || n.dir {
			return fail(op, "file not found: %s", f)
		}
		delete(s.nodes, f)
		return ok(op, nil)

	case protocol.OpDirExists, protocol.OpFileExists:
		n, exists := s.nodes[p("path")]
		if !exists || n.dir != (op == protocol.OpDirExists) {
			return fail(op, "not found")
		}
		return ok(op, nil)

	case protocol.OpFileRead:
		f := p("path")
		n, exists := s.nodes[f]
		if !exists || n.dir {
			return fail(op, "file not found: %s", f)
		}
		return ok(op, map[string]string{"content": string(n.data)})

	case protocol.OpFileEdit:
		f := p("path")
		n, exists := s.nodes[f]
		if !exists || n.dir {
			return fail(op, "file not found: %s", f)
		}
		data, _ := req.Parameters["data"].(string)
		n.data = []byte(data)
		return ok(op, nil)

	case protocol.OpFileTruncate:
		f := p("path")
		n, exists := s.nodes[f]
		if !exists || n.dir {
			return fail(op, "file not found: %s", f)
		}
		n.data = nil
		return ok(op, nil)

	case protocol.OpFileRename:
		from, to := p("old_path"), p("new_path")
		n, exists := s.nodes[from]
		if !exists || n.dir {
			return fail(op, "file not found: %s", from)
		}
		if _, taken := s.nodes[to]; taken {
			return fail(op, "file exists: %s", to)
		}
		if parent, exists := s.nodes[path.Dir(to)]; !exists || !parent.dir {
			return fail(op, "parent not found: %s", path.Dir(to))
		}
		delete(s.nodes, from)
		s.nodes[to] = n
		return ok(op, nil)

	case protocol.OpGetMetadata:
		target := p("path")
		n, exists := s.nodes[target]
		if !exists {
			return fail(op, "not found: %s", target)
		}
		return ok(op, map[string]interface{}{
			"path": target,
			"entry": map[string]interface{}{
				"name":        path.Base(target),
				"size":        len(n.data),
				"permissions": n.perms,
			},
			"blocks_used": (len(n.data) + 4095) / 4096,
		})

	case protocol.OpSetPerms:
		target := p("path")
		n, exists := s.nodes[target]
		if !exists {
			return fail(op, "not found: %s", target)
		}
		perms, valid := intParam(req.Parameters, "permissions")
		if !valid || perms < 0 || perms > 0777 {
			return fail(op, "invalid permissions")
		}
		n.perms = uint32(perms)
		return ok(op, nil)

	case protocol.OpUserList:
		names := make([]string, 0, len(s.users))
		for name := range s.users {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]map[string]interface{}, 0, len(names))
		for _, name := range names {
			a := s.users[name]
			out = append(out, map[string]interface{}{"username": name, "role": a.role, "is_active": a.active})
		}
		return ok(op, out)

	case protocol.OpUserCreate:
		name, _ := req.Parameters["username"].(string)
		pass, _ := req.Parameters["password"].(string)
		role, _ := req.Parameters["role"].(string)
		if name == "" {
			return fail(op, "username is required")
		}
		if _, exists := s.users[name]; exists {
			return fail(op, "user already exists: %s", name)
		}
		s.users[name] = &account{password: pass, role: role, active: true}
		return ok(op, nil)

	case protocol.OpUserDelete:
		name, _ := req.Parameters["username"].(string)
		if _, exists := s.users[name]; !exists {
			return fail(op, "user not found: %s", name)
		}
		delete(s.users, name)
		return ok(op, nil)

	case protocol.OpGetStats:
		var used int64
		files, dirs := 0, 0
		for _, n := range s.nodes {
			if n.dir {
				dirs++
			} else {
				files++
				used += int64(len(n.data))
			}
		}
		free := s.TotalSize - used
		if free < 0 {
			free = 0
		}
		return ok(op, map[string]interface{}{
			"total_size":        s.TotalSize,
			"used_space":        used,
			"free_space":        free,
			"total_files":       files,
			"total_directories": dirs,
			"total_users":       len(s.users),
			"active_sessions":   len(s.sessions),
		})
	}
	return fail(op, "unsupported operation: %s", op)
}

func (s *Server) login(req *protocol.Request) *protocol.Response {
	name, _ := req.Parameters["username"].(string)
	pass, _ := req.Parameters["password"].(string)
	a, exists := s.users[name]
	if !exists || a.password != pass {
		return fail(req.Operation, "invalid username or password")
	}
	s.nextToken++
	token := fmt.Sprintf("tok-%s-%d", name, s.nextToken)
	s.sessions[token] = name
	return ok(req.Operation, map[string]string{s.TokenKey: token, "role": a.role})
}

func (s *Server) create(op protocol.Operation, p string, n *node) *protocol.Response {
	if _, exists := s.nodes[p]; exists {
		return fail(op, "already exists: %s", p)
	}
	parent, exists := s.nodes[path.Dir(p)]
	if !exists || !parent.dir {
		return fail(op, "parent directory not found: %s", path.Dir(p))
	}
	s.nodes[p] = n
	return ok(op, nil)
}

// children lists dir in reverse name order so clients must sort.
func (s *Server) children(dir string) []map[string]interface{} {
	var out []map[string]interface{}
	for p, n := range s.nodes {
		if p == "/" || path.Dir(p) != dir {
			continue
		}
		typ := "file"
		if n.dir {
			typ = "directory"
		}
		out = append(out, map[string]interface{}{"name": path.Base(p), "type": typ, "size": len(n.data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["name"].(string) > out[j]["name"].(string) })
	if out == nil {
		out = []map[string]interface{}{}
	}
	return out
}

func intParam(params protocol.Params, name string) (int64, bool) {
	switch v := params[name].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}
