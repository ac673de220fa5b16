package state

import (
	"sync"

	"github.com/ofs-tools/ofs-client/internal/events"
	"github.com/ofs-tools/ofs-client/internal/models"
)

// Listing holds the entries of the most recent dir_list. It is not a cache:
// it is replaced by every listing and is only consulted to validate the
// next action (entering a directory, picking the delete operation).
type Listing struct {
	eventBus *events.EventBus

	path      string
	entries   []models.DirectoryEntry
	lastError error

	mu sync.RWMutex
}

// NewListing creates an empty Listing. eventBus may be nil.
func NewListing(eventBus *events.EventBus) *Listing {
	return &Listing{
		eventBus: eventBus,
		entries:  make([]models.DirectoryEntry, 0),
	}
}

// SetItems stores the entries of dir, sorted directories first then by name,
// and publishes a change event.
func (l *Listing) SetItems(dir string, entries []models.DirectoryEntry) {
	sorted := make([]models.DirectoryEntry, len(entries))
	copy(sorted, entries)
	models.SortEntries(sorted)

	l.mu.Lock()
	l.path = dir
	l.entries = sorted
	l.lastError = nil
	itemsCopy := make([]models.DirectoryEntry, len(sorted))
	copy(itemsCopy, sorted)
	l.mu.Unlock()

	if l.eventBus != nil {
		l.eventBus.Publish(NewListingChangedEvent(dir, itemsCopy, nil))
	}
}

// SetError records a failed listing of dir. The previous entries no longer
// describe the current directory and are dropped.
func (l *Listing) SetError(dir string, err error) {
	l.mu.Lock()
	l.path = dir
	l.entries = make([]models.DirectoryEntry, 0)
	l.lastError = err
	l.mu.Unlock()

	if l.eventBus != nil && err != nil {
		l.eventBus.Publish(NewListingChangedEvent(dir, nil, err))
	}
}

// Clear empties the listing.
func (l *Listing) Clear() {
	l.mu.Lock()
	l.path = ""
	l.entries = make([]models.DirectoryEntry, 0)
	l.lastError = nil
	l.mu.Unlock()

	if l.eventBus != nil {
		l.eventBus.Publish(NewListingChangedEvent("", nil, nil))
	}
}

// Entries returns a copy of the current entries.
func (l *Listing) Entries() []models.DirectoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]models.DirectoryEntry, len(l.entries))
	copy(result, l.entries)
	return result
}

// Path returns the directory the entries belong to.
func (l *Listing) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.path
}

// Err returns the error of the last listing attempt.
func (l *Listing) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastError
}

// Len returns the number of entries.
func (l *Listing) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Lookup finds an entry by exact name.
func (l *Listing) Lookup(name string) (models.DirectoryEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.Name == name {
			return e, true
		}
	}
	return models.DirectoryEntry{}, false
}
