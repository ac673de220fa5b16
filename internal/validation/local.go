package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateLocalFilename checks a name taken from the remote tree before it is
// used as a local file name. Both separator styles are rejected so a remote
// name cannot place a download outside the target directory.
func ValidateLocalFilename(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("filename %w: %q", ErrNullByte, name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("filename cannot contain path separators: %s", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	return nil
}

// ValidatePathInDirectory reports an error when target, once made absolute,
// is not baseDir itself or a descendant of it.
func ValidatePathInDirectory(target, baseDir string) error {
	if target == "" || baseDir == "" {
		return fmt.Errorf("path and base directory are required")
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absTarget := target
	if !filepath.IsAbs(target) {
		absTarget = filepath.Join(absBase, target)
	}
	absTarget = filepath.Clean(absTarget)

	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", target, baseDir)
	}
	return nil
}
