package models

import "fmt"

// Statistics is the result of get_stats. Sizes are in bytes.
type Statistics struct {
	TotalSize        int64 `json:"total_size"`
	UsedSpace        int64 `json:"used_space"`
	FreeSpace        int64 `json:"free_space"`
	TotalFiles       int   `json:"total_files"`
	TotalDirectories int   `json:"total_directories"`
	TotalUsers       int   `json:"total_users"`
	ActiveSessions   int   `json:"active_sessions"`
}

// UsagePercent returns used/total as a whole percentage, or 0 when the
// volume reports no capacity.
func (s Statistics) UsagePercent() int {
	if s.TotalSize <= 0 {
		return 0
	}
	pct := s.UsedSpace * 100 / s.TotalSize
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// Validate enforces 0 <= used <= total when the total is known.
func (s Statistics) Validate() error {
	if s.TotalSize < 0 || s.UsedSpace < 0 || s.FreeSpace < 0 {
		return fmt.Errorf("negative size in statistics")
	}
	if s.TotalSize > 0 && s.UsedSpace > s.TotalSize {
		return fmt.Errorf("used space %d exceeds total size %d", s.UsedSpace, s.TotalSize)
	}
	return nil
}
