package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/progress"
)

// writeTable prints rows in aligned columns. Widths are measured in
// terminal cells so wide names line up.
func writeTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if cw := runewidth.StringWidth(cell); cw > widths[i] {
					widths[i] = cw
				}
			}
		}
	}

	line := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	line(headers)
	for _, row := range rows {
		line(row)
	}
}

func writeEntries(w io.Writer, entries []models.DirectoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		size := progress.FormatBytes(e.Size)
		if e.IsDir() {
			name += "/"
			size = "-"
		}
		rows = append(rows, []string{string(e.Type), size, name})
	}
	writeTable(w, []string{"TYPE", "SIZE", "NAME"}, rows)
}

func writeUsers(w io.Writer, users []models.UserRecord) {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.Username, u.Role, u.Status()})
	}
	writeTable(w, []string{"USERNAME", "ROLE", "STATUS"}, rows)
}

func writeMetadata(w io.Writer, m models.FileMetadata) {
	fmt.Fprintf(w, "Path:        %s\n", m.Path)
	fmt.Fprintf(w, "Name:        %s\n", m.Entry.Name)
	fmt.Fprintf(w, "Size:        %s (%d bytes)\n", progress.FormatBytes(m.Entry.Size), m.Entry.Size)
	fmt.Fprintf(w, "Permissions: %s (%04o)\n", m.PermissionString(), m.Entry.Permissions)
	fmt.Fprintf(w, "Blocks:      %d\n", m.BlocksUsed)
}

func writeStats(w io.Writer, s models.Statistics) error {
	if err := progress.RenderUsage(w, s, progress.IsTerminal(w)); err != nil {
		return err
	}
	fmt.Fprintf(w, "Files:       %d\n", s.TotalFiles)
	fmt.Fprintf(w, "Directories: %d\n", s.TotalDirectories)
	fmt.Fprintf(w, "Users:       %d\n", s.TotalUsers)
	fmt.Fprintf(w, "Sessions:    %d\n", s.ActiveSessions)
	return nil
}
