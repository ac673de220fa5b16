// Package diskspace checks free space on the local file system before a
// download is written.
package diskspace

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ofs-tools/ofs-client/internal/progress"
)

// SafetyMargin is applied to the size of every download.
const SafetyMargin = 1.1

// InsufficientSpaceError reports that a file does not fit on the target volume.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space for %s: need %s, have %s available",
		e.Path, progress.FormatBytes(e.RequiredBytes), progress.FormatBytes(e.AvailableBytes))
}

// Check returns an InsufficientSpaceError when the volume holding targetPath
// has less than size bytes (plus SafetyMargin) available. When free space
// cannot be determined the check passes and the write fails on its own.
func Check(targetPath string, size int64) error {
	available, ok := Available(filepath.Dir(targetPath))
	if !ok {
		return nil
	}
	required := int64(float64(size) * SafetyMargin)
	if available < required {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  required,
			AvailableBytes: available,
		}
	}
	return nil
}

// Available returns the bytes available to the current user on the volume
// holding dir.
func Available(dir string) (int64, bool) {
	return available(dir)
}

// IsInsufficientSpace reports whether err is or wraps an InsufficientSpaceError.
func IsInsufficientSpace(err error) bool {
	var e *InsufficientSpaceError
	return errors.As(err, &e)
}
