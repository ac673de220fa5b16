// Package session owns the authentication lifecycle of the client: it holds
// the current Session and attaches its token to every outgoing call.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/ofs-tools/ofs-client/internal/logging"
	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/protocol"
)

// ErrMissingCredentials is returned by Login before any call is made.
var ErrMissingCredentials = errors.New("username is required")

// State is the authentication state.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Session is the identity established by a successful login. The zero value
// is the anonymous session.
type Session struct {
	Token    string
	Username string
	Role     models.Role
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// IsAdmin reports whether the session has the admin role.
func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == models.RoleAdmin
}

type loginData struct {
	SessionID    string `json:"session_id"`
	SessionToken string `json:"session_token"`
	Role         string `json:"role"`
}

// Manager is the only writer of the session. Reads are safe from any goroutine.
type Manager struct {
	caller protocol.Caller
	logger *logging.Logger

	mu      sync.RWMutex
	current Session
}

// NewManager creates an anonymous session manager issuing calls through caller.
func NewManager(caller protocol.Caller, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Manager{caller: caller, logger: logger}
}

// Current returns a copy of the session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Token returns the current token, empty when anonymous.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Token
}

// State returns Anonymous or Authenticated.
func (m *Manager) State() State {
	if m.Token() == "" {
		return Anonymous
	}
	return Authenticated
}

// Call issues op with the current token attached. The token is copied once
// so a concurrent logout cannot change it mid-call.
func (m *Manager) Call(ctx context.Context, op protocol.Operation, params protocol.Params) *protocol.Response {
	return m.caller.Call(ctx, op, params, m.Token())
}

// Login authenticates with the server. On success the manager becomes
// Authenticated; on failure the previous state is kept and the server's
// message is returned as a *protocol.RemoteError.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, ErrMissingCredentials
	}

	resp := m.caller.Call(ctx, protocol.OpUserLogin, protocol.Params{
		"username": username,
		"password": password,
	}, "")
	if err := resp.Err(); err != nil {
		m.logger.Info().Str("username", username).Str("reason", resp.ErrorMessage).Msg("login rejected")
		return Session{}, err
	}

	var data loginData
	if resp.HasData() {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return Session{}, &protocol.RemoteError{Operation: protocol.OpUserLogin, Message: "login response data is malformed"}
		}
	}
	token := data.SessionID
	if token == "" {
		token = data.SessionToken
	}
	if token == "" {
		return Session{}, &protocol.RemoteError{Operation: protocol.OpUserLogin, Message: "login response carried no session token"}
	}

	s := Session{Token: token, Username: username, Role: models.ParseRole(data.Role)}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	m.logger.Info().Str("username", username).Str("role", string(s.Role)).Msg("logged in")
	return s, nil
}

// Logout ends the session. The remote user_logout is best-effort: the
// session is cleared whatever its outcome, and its error is returned only
// for reporting.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	s := m.current
	m.current = Session{}
	m.mu.Unlock()

	if !s.Authenticated() {
		return nil
	}

	err := m.caller.Call(ctx, protocol.OpUserLogout, nil, s.Token).Err()
	if err != nil {
		m.logger.Warn().Str("username", s.Username).Err(err).Msg("remote logout failed; session cleared locally")
	} else {
		m.logger.Info().Str("username", s.Username).Msg("logged out")
	}
	return err
}

// Clear drops the session without contacting the server.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.current = Session{}
	m.mu.Unlock()
}
