package progress

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/ofs-tools/ofs-client/internal/models"
)

// FormatBytes returns a human-readable byte count.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// UsageLine is the plain-text form of the usage gauge.
func UsageLine(stats models.Statistics) string {
	return fmt.Sprintf("Usage: %d%% (%s of %s used, %s free)",
		stats.UsagePercent(),
		FormatBytes(stats.UsedSpace),
		FormatBytes(stats.TotalSize),
		FormatBytes(stats.FreeSpace))
}

// RenderUsage writes the storage usage of stats to w. With bar set it draws
// a progress bar sized to the volume; otherwise it writes UsageLine. A
// volume of unknown size is always rendered as text.
func RenderUsage(w io.Writer, stats models.Statistics, bar bool) error {
	if !bar || stats.TotalSize <= 0 {
		_, err := fmt.Fprintln(w, UsageLine(stats))
		return err
	}

	used := stats.UsedSpace
	if used > stats.TotalSize {
		used = stats.TotalSize
	}
	gauge := progressbar.NewOptions64(stats.TotalSize,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Usage"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)
	// Finish would fill the bar to 100%, so the gauge is only set.
	if err := gauge.Set64(used); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
