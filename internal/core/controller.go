package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ofs-tools/ofs-client/internal/constants"
	"github.com/ofs-tools/ofs-client/internal/events"
	"github.com/ofs-tools/ofs-client/internal/logging"
	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/services"
	"github.com/ofs-tools/ofs-client/internal/session"
	"github.com/ofs-tools/ofs-client/internal/state"
	"github.com/ofs-tools/ofs-client/internal/validation"
)

// Controller errors. None of them involves a network call.
var (
	ErrBusy                 = errors.New("another action is in progress")
	ErrNotAuthenticated     = errors.New("not logged in")
	ErrAlreadyAuthenticated = errors.New("already logged in")
	ErrNotPermitted         = errors.New("action not permitted for this account")
	ErrNotDirectory         = errors.New("not a directory")
	ErrUnknownEntry         = errors.New("no such entry in the current directory")
)

// View is the active top-level view.
type View int

const (
	LoginView View = iota
	MainView
)

func (v View) String() string {
	if v == MainView {
		return "main"
	}
	return "login"
}

// Controller is the application state machine. It owns the active view and
// allows at most one action in flight; a second concurrent action fails
// with ErrBusy instead of queueing.
type Controller struct {
	sessions *session.Manager
	files    *services.FileService
	users    *services.UserService
	system   *services.SystemService
	eventBus *events.EventBus
	logger   *logging.Logger

	nav     *state.Navigator
	listing *state.Listing

	mu   sync.RWMutex
	view View
	caps ActionSet

	flight sync.Mutex
}

// NewController creates a controller in the login view.
func NewController(e *Engine) *Controller {
	return &Controller{
		sessions: e.Sessions(),
		files:    e.FileService(),
		users:    e.UserService(),
		system:   e.SystemService(),
		eventBus: e.Events(),
		logger:   e.Logger().Named("controller"),
		nav:      state.NewNavigator(e.Events()),
		listing:  state.NewListing(e.Events()),
		view:     LoginView,
	}
}

// View returns the active view.
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Capabilities returns the actions of the current session; empty in the
// login view.
func (c *Controller) Capabilities() ActionSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

// Can reports whether a is currently available.
func (c *Controller) Can(a Action) bool {
	return c.Capabilities().Has(a)
}

// Session returns a copy of the current session.
func (c *Controller) Session() session.Session {
	return c.sessions.Current()
}

// Path returns the current remote directory.
func (c *Controller) Path() string {
	return c.nav.Path()
}

// Entries returns the entries of the last listing.
func (c *Controller) Entries() []models.DirectoryEntry {
	return c.listing.Entries()
}

// ListingErr returns the error of the last listing, if it failed.
func (c *Controller) ListingErr() error {
	return c.listing.Err()
}

// begin acquires the single-flight slot for a and checks it is allowed.
// The returned function releases the slot.
func (c *Controller) begin(a Action) (func(), error) {
	if !c.flight.TryLock() {
		return nil, ErrBusy
	}
	c.mu.RLock()
	view, caps := c.view, c.caps
	c.mu.RUnlock()

	if view != MainView {
		c.flight.Unlock()
		return nil, ErrNotAuthenticated
	}
	if !caps.Has(a) {
		c.flight.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotPermitted, a)
	}
	return c.flight.Unlock, nil
}

// failed publishes remote failures so every view sees them.
func (c *Controller) failed(a Action, err error) error {
	return c.publishFailure(a.String(), err)
}

func (c *Controller) publishFailure(name string, err error) error {
	if err != nil {
		c.eventBus.PublishOperationFailed(name, err)
	}
	return err
}

func (c *Controller) setView(v View, caps ActionSet) {
	c.mu.Lock()
	from := c.view
	c.view = v
	c.caps = caps
	c.mu.Unlock()

	if from != v {
		c.eventBus.Publish(&events.ViewChangedEvent{
			BaseEvent: events.NewBaseEvent(events.EventViewChanged),
			From:      from.String(),
			To:        v.String(),
		})
	}
}

func (c *Controller) publishSession(s session.Session) {
	c.eventBus.Publish(&events.SessionChangedEvent{
		BaseEvent:     events.NewBaseEvent(events.EventSessionChanged),
		Authenticated: s.Authenticated(),
		Username:      s.Username,
		Role:          string(s.Role),
	})
}

// Login authenticates and switches to the main view at "/". A failed
// initial listing does not fail the login; it is recorded on the listing.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	if !c.flight.TryLock() {
		return ErrBusy
	}
	defer c.flight.Unlock()

	if c.View() != LoginView {
		return ErrAlreadyAuthenticated
	}

	s, err := c.sessions.Login(ctx, username, password)
	if err != nil {
		return c.publishFailure("login", err)
	}

	c.nav.Reset()
	c.listing.Clear()
	c.setView(MainView, CapabilitiesFor(s.Role))
	c.publishSession(s)

	if err := c.refresh(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("initial listing failed")
	}
	return nil
}

// Logout ends the session and returns to the login view with navigation
// reset. The transition always happens; a failed remote logout is
// returned for reporting only.
func (c *Controller) Logout(ctx context.Context) error {
	release, err := c.begin(ActionLogout)
	if err != nil {
		return err
	}
	defer release()

	remoteErr := c.sessions.Logout(ctx)
	c.reset()
	return remoteErr
}

func (c *Controller) reset() {
	c.nav.Reset()
	c.listing.Clear()
	c.setView(LoginView, 0)
	c.publishSession(session.Session{})
}

// Refresh re-lists the current directory.
func (c *Controller) Refresh(ctx context.Context) error {
	release, err := c.begin(ActionBrowse)
	if err != nil {
		return err
	}
	defer release()
	return c.refresh(ctx)
}

func (c *Controller) refresh(ctx context.Context) error {
	dir := c.nav.Path()
	start := time.Now()
	entries, err := c.files.List(ctx, dir)
	if err != nil {
		c.listing.SetError(dir, err)
		return c.failed(ActionBrowse, err)
	}
	c.listing.SetItems(dir, entries)
	c.logger.Debug().Str("path", dir).Int("entries", len(entries)).Dur("elapsed", time.Since(start)).Msg("refreshed")
	return nil
}

// afterMutation re-lists the current directory. The mutation itself has
// already succeeded, so a listing failure is only recorded.
func (c *Controller) afterMutation(ctx context.Context) {
	if err := c.refresh(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("re-listing after change failed")
	}
}

// Enter moves into a child directory known from the last listing.
func (c *Controller) Enter(ctx context.Context, name string) error {
	release, err := c.begin(ActionBrowse)
	if err != nil {
		return err
	}
	defer release()

	entry, ok := c.listing.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, name)
	}
	if !entry.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, name)
	}
	if _, err := c.nav.Enter(name); err != nil {
		return err
	}
	return c.refresh(ctx)
}

// Up moves to the parent directory. At the root nothing happens.
func (c *Controller) Up(ctx context.Context) error {
	release, err := c.begin(ActionBrowse)
	if err != nil {
		return err
	}
	defer release()

	if _, moved := c.nav.Up(); !moved {
		return nil
	}
	return c.refresh(ctx)
}

// GoTo moves to an absolute or relative directory path. Every segment is
// checked to be a directory before navigation changes, so a failed GoTo
// leaves the current directory untouched.
func (c *Controller) GoTo(ctx context.Context, target string) error {
	release, err := c.begin(ActionBrowse)
	if err != nil {
		return err
	}
	defer release()

	dest := c.resolve(target)
	var segments []string
	if dest != constants.RootPath {
		segments = strings.Split(strings.TrimPrefix(dest, constants.RootPath), constants.PathSeparator)
	}

	dir := constants.RootPath
	for _, seg := range segments {
		entries, err := c.files.List(ctx, dir)
		if err != nil {
			return c.failed(ActionBrowse, err)
		}
		found := false
		for _, e := range entries {
			if e.Name == seg {
				if !e.IsDir() {
					return fmt.Errorf("%w: %s", ErrNotDirectory, state.Join(dir, seg))
				}
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownEntry, state.Join(dir, seg))
		}
		dir = state.Join(dir, seg)
	}

	c.nav.Reset()
	for _, seg := range segments {
		if _, err := c.nav.Enter(seg); err != nil {
			return err
		}
	}
	return c.refresh(ctx)
}

// resolve maps a name or path typed by the user to an absolute remote path.
func (c *Controller) resolve(target string) string {
	if strings.HasPrefix(target, constants.RootPath) {
		return state.Normalize(target)
	}
	return state.Join(c.nav.Path(), target)
}

// CreateDir creates a directory in the current directory.
func (c *Controller) CreateDir(ctx context.Context, name string) error {
	release, err := c.begin(ActionCreateDir)
	if err != nil {
		return err
	}
	defer release()

	if err := validation.ValidateEntryName(name); err != nil {
		return err
	}
	if err := c.files.CreateDir(ctx, c.nav.Child(name)); err != nil {
		return c.failed(ActionCreateDir, err)
	}
	c.afterMutation(ctx)
	return nil
}

// CreateFile creates a file in the current directory, writing content when
// it is non-empty.
func (c *Controller) CreateFile(ctx context.Context, name, content string) error {
	release, err := c.begin(ActionCreateFile)
	if err != nil {
		return err
	}
	defer release()

	if err := validation.ValidateEntryName(name); err != nil {
		return err
	}
	if err := c.files.CreateFileWithContent(ctx, c.nav.Child(name), content); err != nil {
		c.failed(ActionCreateFile, err)
		// file_create may have succeeded before file_edit failed.
		c.afterMutation(ctx)
		return err
	}
	c.afterMutation(ctx)
	return nil
}

// ReadFile returns the content of a file, by name or path.
func (c *Controller) ReadFile(ctx context.Context, target string) (string, error) {
	release, err := c.begin(ActionReadFile)
	if err != nil {
		return "", err
	}
	defer release()

	content, err := c.files.Read(ctx, c.resolve(target))
	return content, c.failed(ActionReadFile, err)
}

// EditFile replaces the content of a file, by name or path.
func (c *Controller) EditFile(ctx context.Context, target, content string) error {
	release, err := c.begin(ActionEditFile)
	if err != nil {
		return err
	}
	defer release()

	if err := c.files.Edit(ctx, c.resolve(target), content); err != nil {
		return c.failed(ActionEditFile, err)
	}
	c.afterMutation(ctx)
	return nil
}

// Delete removes an entry of the current directory, choosing dir_delete or
// file_delete from its type in the last listing.
func (c *Controller) Delete(ctx context.Context, name string) error {
	release, err := c.begin(ActionDelete)
	if err != nil {
		return err
	}
	defer release()

	entry, ok := c.listing.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, name)
	}
	p := c.nav.Child(name)
	if entry.IsDir() {
		err = c.files.DeleteDir(ctx, p)
	} else {
		err = c.files.DeleteFile(ctx, p)
	}
	if err != nil {
		return c.failed(ActionDelete, err)
	}
	c.afterMutation(ctx)
	return nil
}

// Rename moves a file. newName may be a bare name, kept in the current
// directory, or a path.
func (c *Controller) Rename(ctx context.Context, target, newName string) error {
	release, err := c.begin(ActionRename)
	if err != nil {
		return err
	}
	defer release()

	if !strings.Contains(newName, constants.PathSeparator) {
		if err := validation.ValidateEntryName(newName); err != nil {
			return err
		}
	}
	if err := c.files.Rename(ctx, c.resolve(target), c.resolve(newName)); err != nil {
		return c.failed(ActionRename, err)
	}
	c.afterMutation(ctx)
	return nil
}

// Truncate empties a file.
func (c *Controller) Truncate(ctx context.Context, target string) error {
	release, err := c.begin(ActionTruncate)
	if err != nil {
		return err
	}
	defer release()

	if err := c.files.Truncate(ctx, c.resolve(target)); err != nil {
		return c.failed(ActionTruncate, err)
	}
	c.afterMutation(ctx)
	return nil
}

// SetPermissions changes the permission bits of an entry.
func (c *Controller) SetPermissions(ctx context.Context, target string, perms uint32) error {
	release, err := c.begin(ActionSetPermissions)
	if err != nil {
		return err
	}
	defer release()

	if err := c.files.SetPermissions(ctx, c.resolve(target), perms); err != nil {
		return c.failed(ActionSetPermissions, err)
	}
	c.afterMutation(ctx)
	return nil
}

// Metadata returns the metadata of an entry.
func (c *Controller) Metadata(ctx context.Context, target string) (models.FileMetadata, error) {
	release, err := c.begin(ActionMetadata)
	if err != nil {
		return models.FileMetadata{}, err
	}
	defer release()

	meta, err := c.files.Metadata(ctx, c.resolve(target))
	return meta, c.failed(ActionMetadata, err)
}

// Users lists all accounts.
func (c *Controller) Users(ctx context.Context) ([]models.UserRecord, error) {
	release, err := c.begin(ActionListUsers)
	if err != nil {
		return nil, err
	}
	defer release()

	users, err := c.users.List(ctx)
	return users, c.failed(ActionListUsers, err)
}

// CreateUser adds an account.
func (c *Controller) CreateUser(ctx context.Context, username, password string, role models.Role) error {
	release, err := c.begin(ActionCreateUser)
	if err != nil {
		return err
	}
	defer release()

	return c.failed(ActionCreateUser, c.users.Create(ctx, username, password, role))
}

// DeleteUser removes an account. Deleting the bootstrap admin account is
// refused before any call.
func (c *Controller) DeleteUser(ctx context.Context, username string) error {
	release, err := c.begin(ActionDeleteUser)
	if err != nil {
		return err
	}
	defer release()

	return c.failed(ActionDeleteUser, c.users.Delete(ctx, username))
}

// Stats returns server statistics.
func (c *Controller) Stats(ctx context.Context) (models.Statistics, error) {
	release, err := c.begin(ActionStats)
	if err != nil {
		return models.Statistics{}, err
	}
	defer release()

	stats, err := c.system.Stats(ctx)
	return stats, c.failed(ActionStats, err)
}

// ExplainError asks the server for the text of an error code.
func (c *Controller) ExplainError(ctx context.Context, code int) (string, error) {
	release, err := c.begin(ActionExplainError)
	if err != nil {
		return "", err
	}
	defer release()

	msg, err := c.system.ErrorMessage(ctx, code)
	return msg, c.failed(ActionExplainError, err)
}
