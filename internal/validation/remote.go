// Package validation checks user input before it reaches the OFS server or
// the local filesystem.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ofs-tools/ofs-client/internal/constants"
)

var (
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrReservedName    = errors.New("name cannot be '.' or '..'")
	ErrSeparatorInName = errors.New("name cannot contain '/'")
	ErrNullByte        = errors.New("contains null byte")
	ErrRelativePath    = errors.New("remote path must be absolute")
	ErrInvalidUsername = errors.New("username must be non-empty and contain no whitespace")
	ErrInvalidPerms    = errors.New("permissions must be an octal value between 000 and 777")
)

// ValidateEntryName checks a single remote path segment, as typed for
// mkdir, touch or rename targets.
func ValidateEntryName(name string) error {
	switch {
	case name == "":
		return ErrEmptyName
	case name == "." || name == "..":
		return ErrReservedName
	case strings.Contains(name, constants.PathSeparator):
		return fmt.Errorf("%w: %s", ErrSeparatorInName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("name %w", ErrNullByte)
	}
	return nil
}

// ValidateRemotePath checks a full remote path. It must be absolute; it is
// not required to be normalized.
func ValidateRemotePath(p string) error {
	if !strings.HasPrefix(p, constants.RootPath) {
		return fmt.Errorf("%w: %q", ErrRelativePath, p)
	}
	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("path %w", ErrNullByte)
	}
	return nil
}

// ValidateUsername checks an account name for user_create and user_delete.
func ValidateUsername(name string) error {
	if name == "" || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return ErrInvalidUsername
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("username %w", ErrNullByte)
	}
	return nil
}

// ParsePermissions parses an octal mode such as "644" or "0755".
func ParsePermissions(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0o")
	if s == "" || len(s) > 4 {
		return 0, ErrInvalidPerms
	}
	var v uint32
	for _, c := range s {
		if c < '0' || c > '7' {
			return 0, ErrInvalidPerms
		}
		v = v*8 + uint32(c-'0')
	}
	if v > 0777 {
		return 0, ErrInvalidPerms
	}
	return v, nil
}
