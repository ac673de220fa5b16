// Package models holds the typed records projected from OFS responses.
package models

import (
	"fmt"
	"sort"
)

// EntryType is the kind of a directory entry as reported by dir_list.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
)

// DirectoryEntry is one child of a remote directory.
// Entries are rebuilt from every dir_list response and never cached across requests.
type DirectoryEntry struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
	Size int64     `json:"size"`
}

// IsDir reports whether the entry is a directory.
func (e DirectoryEntry) IsDir() bool {
	return e.Type == EntryDirectory
}

// Validate checks the entry carries a name, a known type and a non-negative size.
func (e DirectoryEntry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entry has no name")
	}
	if e.Type != EntryFile && e.Type != EntryDirectory {
		return fmt.Errorf("entry %q has unknown type %q", e.Name, e.Type)
	}
	if e.Size < 0 {
		return fmt.Errorf("entry %q has negative size %d", e.Name, e.Size)
	}
	return nil
}

// SortEntries orders entries directories first, then by name (byte-wise).
// The slice is sorted in place and returned for convenience.
func SortEntries(entries []DirectoryEntry) []DirectoryEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// EntryInfo is the entry record embedded in get_metadata responses.
type EntryInfo struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Permissions uint32 `json:"permissions"`
}

// FileMetadata is the result of get_metadata.
type FileMetadata struct {
	Path       string    `json:"path"`
	Entry      EntryInfo `json:"entry"`
	BlocksUsed int64     `json:"blocks_used"`
}

// PermissionString renders the permission bits in the familiar rwxrwxrwx form.
func (m FileMetadata) PermissionString() string {
	const letters = "rwxrwxrwx"
	out := make([]byte, len(letters))
	for i := range letters {
		if m.Entry.Permissions&(1<<uint(len(letters)-1-i)) != 0 {
			out[i] = letters[i]
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}
