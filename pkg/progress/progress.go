// Package progress reports progress of long-running catalog operations.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Callback receives progress updates. It may be called from several
// goroutines at once.
type Callback func(op string, current, total int, message string)

// Noop is a no-op callback for default behavior.
func Noop(op string, current, total int, message string) {}

// Counter counts completed units of a fixed-size operation and forwards
// each step to a Callback. It is safe for concurrent use.
type Counter struct {
	op      string
	total   int
	current atomic.Int64
	cb      Callback
}

// New creates a Counter. A nil callback discards updates.
func New(op string, total int, cb Callback) *Counter {
	if cb == nil {
		cb = Noop
	}
	return &Counter{op: op, total: total, cb: cb}
}

// Increment advances the counter by one and reports it.
func (c *Counter) Increment(message string) {
	n := c.current.Add(1)
	c.cb(c.op, int(n), c.total, message)
}

// Current returns the number of completed units.
func (c *Counter) Current() int {
	return int(c.current.Load())
}

// Terminal draws a single-line progress bar.
type Terminal struct {
	mu          sync.Mutex
	writer      io.Writer
	op          string
	total       int
	lastLineLen int
	enabled     atomic.Bool
}

// NewTerminal creates a progress bar writing to stderr.
func NewTerminal(op string, total int, enabled bool) *Terminal {
	return NewTerminalWriter(os.Stderr, op, total, enabled)
}

// NewTerminalWriter creates a progress bar writing to w.
func NewTerminalWriter(w io.Writer, op string, total int, enabled bool) *Terminal {
	t := &Terminal{writer: w, op: op, total: total}
	t.enabled.Store(enabled)
	return t
}

// Callback returns a Callback that redraws the bar.
func (t *Terminal) Callback() Callback {
	return func(op string, current, total int, message string) {
		if !t.enabled.Load() {
			return
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		t.render(current, message)
	}
}

func (t *Terminal) render(current int, message string) {
	total := t.total
	if total <= 0 {
		total = 1
	}
	if current > total {
		current = total
	}

	const barWidth = 30
	filled := barWidth * current / total
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)

	clear := "\r"
	if t.lastLineLen > 0 {
		clear = "\r" + strings.Repeat(" ", t.lastLineLen) + "\r"
	}
	line := fmt.Sprintf("%s [%s] %d/%d (%.0f%%)", t.op, bar, current, t.total, float64(current)/float64(total)*100)
	if message != "" {
		line += " " + message
	}
	fmt.Fprint(t.writer, clear+line)
	t.lastLineLen = len(line)
}

// Done draws the completed bar and ends the line.
func (t *Terminal) Done(message string) {
	if !t.enabled.Load() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.render(t.total, message)
	fmt.Fprintln(t.writer)
}

// SetEnabled enables or disables the progress bar.
func (t *Terminal) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}
