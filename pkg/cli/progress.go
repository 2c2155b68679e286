package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports how many of a known number of units have
// settled.
type ProgressReporter interface {
	Start(total int)
	Settle(name string, failed bool)
	Finish()
	Error(err error)
}

// SimpleProgress redraws a single status line:
//
//	Providers: [██████░░░░░░] 2/4 (1 failed) 1.204s
type SimpleProgress struct {
	mu      sync.Mutex
	writer  io.Writer
	label   string
	total   int
	settled int
	failed  int
	last    string
	started time.Time
}

// NewProgressReporter creates a progress reporter that writes to w, or to
// os.Stderr when w is nil.
func NewProgressReporter(w io.Writer, label string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if label == "" {
		label = "Progress"
	}
	return &SimpleProgress{writer: w, label: label}
}

// Start resets the reporter for total units.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.settled, p.failed = 0, 0
	p.last = ""
	p.started = time.Now()
	p.render()
}

// Settle records one finished unit. Units beyond total are ignored.
func (p *SimpleProgress) Settle(name string, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.settled >= p.total {
		return
	}
	p.settled++
	if failed {
		p.failed++
	}
	p.last = name
	p.render()
}

// Finish ends the status line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = ""
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error on its own line.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

const barWidth = 24

func (p *SimpleProgress) render() {
	if p.total <= 0 {
		return
	}

	filled := barWidth * p.settled / p.total
	var sb strings.Builder
	fmt.Fprintf(&sb, "\r%s: [%s%s] %d/%d",
		p.label, strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled), p.settled, p.total)
	if p.failed > 0 {
		fmt.Fprintf(&sb, " (%d failed)", p.failed)
	}
	fmt.Fprintf(&sb, " %s", time.Since(p.started).Round(time.Millisecond))
	if p.last != "" {
		fmt.Fprintf(&sb, " %s", p.last)
	}
	// Pad over the remains of a longer previous line.
	sb.WriteString("\x1b[K")
	io.WriteString(p.writer, sb.String())
}
