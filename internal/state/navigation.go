package state

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/ofs-tools/ofs-client/internal/constants"
	"github.com/ofs-tools/ofs-client/internal/events"
)

// ErrInvalidName is returned by Enter for names that are not a single path segment.
var ErrInvalidName = errors.New("invalid entry name")

// Normalize returns the canonical absolute form of a remote path: rooted,
// without duplicate or trailing separators, with "." and ".." resolved.
// The empty path is the root.
func Normalize(p string) string {
	return path.Clean(constants.RootPath + p)
}

// Join appends a child name to a directory path.
func Join(dir, name string) string {
	return Normalize(dir + constants.PathSeparator + name)
}

// Parent strips the final segment of p. The parent of the root is the root.
func Parent(p string) string {
	p = Normalize(p)
	if p == constants.RootPath {
		return p
	}
	i := strings.LastIndex(p, constants.PathSeparator)
	if i <= 0 {
		return constants.RootPath
	}
	return p[:i]
}

// Base returns the final segment of p, or "/" for the root.
func Base(p string) string {
	return path.Base(Normalize(p))
}

// Navigator tracks the current remote directory. It starts at the root.
// Whether a child is a directory is the caller's concern: Enter only
// composes paths.
type Navigator struct {
	eventBus *events.EventBus

	current string
	mu      sync.RWMutex
}

// NewNavigator creates a Navigator at "/". eventBus may be nil.
func NewNavigator(eventBus *events.EventBus) *Navigator {
	return &Navigator{eventBus: eventBus, current: constants.RootPath}
}

// Path returns the current directory.
func (n *Navigator) Path() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

// IsRoot reports whether the current directory is "/".
func (n *Navigator) IsRoot() bool {
	return n.Path() == constants.RootPath
}

// Child returns the full path of name inside the current directory
// without moving.
func (n *Navigator) Child(name string) string {
	return Join(n.Path(), name)
}

// Enter moves into the child directory name.
func (n *Navigator) Enter(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.Contains(name, constants.PathSeparator) {
		return n.Path(), fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	n.mu.Lock()
	from := n.current
	n.current = Join(from, name)
	to := n.current
	n.mu.Unlock()

	n.publish(from, to)
	return to, nil
}

// Up moves to the parent directory. At the root it is a no-op and reports
// false.
func (n *Navigator) Up() (string, bool) {
	n.mu.Lock()
	from := n.current
	if from == constants.RootPath {
		n.mu.Unlock()
		return from, false
	}
	n.current = Parent(from)
	to := n.current
	n.mu.Unlock()

	n.publish(from, to)
	return to, true
}

// Set assigns the current directory directly.
func (n *Navigator) Set(p string) string {
	n.mu.Lock()
	from := n.current
	n.current = Normalize(p)
	to := n.current
	n.mu.Unlock()

	n.publish(from, to)
	return to
}

// Reset returns to the root.
func (n *Navigator) Reset() {
	n.Set(constants.RootPath)
}

func (n *Navigator) publish(from, to string) {
	if n.eventBus != nil && from != to {
		n.eventBus.Publish(NewPathChangedEvent(from, to))
	}
}
