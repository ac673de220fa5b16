// Package state provides the observable client-side state of the OFS client:
// the current remote directory and the entries of its last listing.
// Containers publish events on change so any presentation layer can follow.
package state

import (
	"time"

	"github.com/ofs-tools/ofs-client/internal/events"
	"github.com/ofs-tools/ofs-client/internal/models"
)

// State event types
const (
	EventPathChanged    events.EventType = "path_changed"
	EventListingChanged events.EventType = "listing_changed"
)

// PathChangedEvent is published when the current remote directory changes.
type PathChangedEvent struct {
	events.BaseEvent
	From string
	To   string
}

// ListingChangedEvent is published when a listing is stored, fails or is cleared.
// Err is set when the listing of Path failed.
type ListingChangedEvent struct {
	events.BaseEvent
	Path    string
	Entries []models.DirectoryEntry
	Err     error
}

// NewPathChangedEvent creates a new PathChangedEvent.
func NewPathChangedEvent(from, to string) *PathChangedEvent {
	return &PathChangedEvent{
		BaseEvent: events.BaseEvent{
			EventType: EventPathChanged,
			Time:      time.Now(),
		},
		From: from,
		To:   to,
	}
}

// NewListingChangedEvent creates a new ListingChangedEvent.
func NewListingChangedEvent(path string, entries []models.DirectoryEntry, err error) *ListingChangedEvent {
	return &ListingChangedEvent{
		BaseEvent: events.BaseEvent{
			EventType: EventListingChanged,
			Time:      time.Now(),
		},
		Path:    path,
		Entries: entries,
		Err:     err,
	}
}
