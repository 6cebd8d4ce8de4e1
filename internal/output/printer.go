// Package output provides console reporting for batch progress and results.
// It supports both styled (lipgloss) and plain output so tests and dumb
// terminals get stable text.
package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Result line markers. Each per-entry outcome gets a distinct marker so
// batch transcripts can be scanned (and grepped) unambiguously.
const (
	MarkerSuccess = "✔"
	MarkerFailure = "✖"
	MarkerSkip    = "⚠"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // Green
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // Red
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // Orange
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// Printer is the batch runner's user-facing output handler.
type Printer struct {
	writer io.Writer
	plain  bool

	// Thread safety for concurrent output
	mu sync.Mutex
}

// Option configures a Printer.
type Option func(*Printer)

// WithWriter directs output to the given writer instead of os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(p *Printer) { p.writer = w }
}

// Plain disables styling, leaving markers and text untouched.
func Plain() Option {
	return func(p *Printer) { p.plain = true }
}

// NewPrinter creates a new Printer with the given options.
// By default it writes styled output to os.Stdout.
func NewPrinter(options ...Option) *Printer {
	p := &Printer{writer: os.Stdout}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Println outputs text with a newline without any styling.
func (p *Printer) Println(text string) {
	p.emit(text, nil)
}

// Printf outputs formatted text without any styling.
func (p *Printer) Printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, format, args...)
}

// Header outputs a bold section line.
func (p *Printer) Header(text string) {
	p.emit(text, &headerStyle)
}

// Success outputs a per-entry success line with the success marker.
func (p *Printer) Success(text string) {
	p.emit(MarkerSuccess+" "+text, &successStyle)
}

// Failure outputs a per-entry failure line with the failure marker.
func (p *Printer) Failure(text string) {
	p.emit(MarkerFailure+" "+text, &failureStyle)
}

// Skip outputs a per-entry skip warning with the skip marker.
func (p *Printer) Skip(text string) {
	p.emit(MarkerSkip+" "+text, &skipStyle)
}

func (p *Printer) emit(text string, style *lipgloss.Style) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if style != nil && !p.plain {
		text = style.Render(text)
	}
	fmt.Fprintln(p.writer, text)
}
