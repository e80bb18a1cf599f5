// Package progress reports the progress of long-running plugin operations.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Report receives progress from a single operation. An operation calls
// SetMessage any number of times followed by exactly one FinishWithMessage.
type Report interface {
	SetMessage(msg string)
	FinishWithMessage(msg string)
}

var (
	prefixStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	doneStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
)

// Terminal writes one styled line per progress event.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
	done   bool
}

// NewTerminal creates a reporter writing to w. prefix names the operation's
// subject, usually the plugin name.
func NewTerminal(w io.Writer, prefix string) *Terminal {
	return &Terminal{w: w, prefix: prefix}
}

// SetMessage writes an intermediate status line.
func (t *Terminal) SetMessage(msg string) {
	t.write(messageStyle.Render(msg))
}

// FinishWithMessage writes the terminal status line. Later calls are ignored.
func (t *Terminal) FinishWithMessage(msg string) {
	t.mu.Lock()
	finished := t.done
	t.done = true
	t.mu.Unlock()

	if finished {
		return
	}
	t.write(doneStyle.Render("✓") + " " + msg)
}

func (t *Terminal) write(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s %s\n", prefixStyle.Render(t.prefix), line)
}

// Discard is a Report that drops every event.
var Discard Report = discard{}

type discard struct{}

func (discard) SetMessage(string)        {}
func (discard) FinishWithMessage(string) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []string
	finish   []string
}

// SetMessage records an intermediate message.
func (r *Recorder) SetMessage(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// FinishWithMessage records a terminal message.
func (r *Recorder) FinishWithMessage(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish = append(r.finish, msg)
}

// Messages returns the recorded intermediate messages.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Finished returns the recorded terminal messages.
func (r *Recorder) Finished() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.finish...)
}

// Final returns the last terminal message, or "" when none was recorded.
func (r *Recorder) Final() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.finish) == 0 {
		return ""
	}
	return r.finish[len(r.finish)-1]
}
