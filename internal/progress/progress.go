// Package progress renders byte progress for local file transfers and the
// storage usage gauge shown by stats.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter receives byte progress for one transfer.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewReporter returns a bar reporter writing to w when w is a terminal, and
// a no-op reporter otherwise so piped output stays clean.
func NewReporter(w io.Writer) Reporter {
	if IsTerminal(w) {
		return NewCLIProgress(w)
	}
	return NoOpProgress{}
}

// CLIProgress reports progress with a progress bar.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a bar reporter writing to out (stderr when nil).
func NewCLIProgress(out io.Writer) *CLIProgress {
	if out == nil {
		out = os.Stderr
	}
	return &CLIProgress{out: out}
}

// Start initializes the bar with the total size and a description.
func (p *CLIProgress) Start(total int64, description string) {
	out := p.out
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to current.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// NoOpProgress discards progress.
type NoOpProgress struct{}

func (NoOpProgress) Start(int64, string) {}
func (NoOpProgress) Update(int64)        {}
func (NoOpProgress) Finish()             {}

// ProgressReader wraps an io.Reader to report bytes read.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	current  int64
}

// NewProgressReader creates a progress-reporting reader.
func NewProgressReader(reader io.Reader, reporter Reporter) *ProgressReader {
	if reporter == nil {
		reporter = NoOpProgress{}
	}
	return &ProgressReader{reader: reader, reporter: reporter}
}

// Read implements io.Reader.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}

// ProgressWriter wraps an io.Writer to report bytes written.
type ProgressWriter struct {
	writer   io.Writer
	reporter Reporter
	current  int64
}

// NewProgressWriter creates a progress-reporting writer.
func NewProgressWriter(writer io.Writer, reporter Reporter) *ProgressWriter {
	if reporter == nil {
		reporter = NoOpProgress{}
	}
	return &ProgressWriter{writer: writer, reporter: reporter}
}

// Write implements io.Writer.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.current += int64(n)
	pw.reporter.Update(pw.current)
	return n, err
}
