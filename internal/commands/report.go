package commands

import (
	"fmt"
	"io"
	"sync"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/theme"
)

// Reporter prints error notifications and remembers them, so a failure
// that was already notified is not printed again as a command error.
type Reporter struct {
	w io.Writer

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w, seen: make(map[string]struct{})}
}

// Notify prints n when it is an error. It is meant for notify.Bus.Subscribe.
func (r *Reporter) Notify(n model.Notification) {
	if n.Level != model.LevelError {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[n.Message] = struct{}{}
	_, _ = fmt.Fprintln(r.w, theme.ErrorStyle.Render(n.Op+": "+n.Message))
}

// Reported reports whether err was already printed as a notification.
func (r *Reporter) Reported(err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[err.Error()]
	return ok
}

// Report prints err unless it was already notified.
func (r *Reporter) Report(err error) {
	if err == nil || r.Reported(err) {
		return
	}
	_, _ = fmt.Fprintln(r.w, theme.ErrorStyle.Render(err.Error()))
}
