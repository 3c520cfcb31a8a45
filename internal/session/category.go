package session

import (
	"strings"
	"sync"

	"github.com/nhle/advisor-tasks/internal/model"
)

// CategoryDialog is the create-category dialog.
type CategoryDialog struct {
	mu         sync.Mutex
	open       bool
	draft      model.CategoryInput
	submitting bool
}

// NewCategoryDialog returns a closed dialog.
func NewCategoryDialog() *CategoryDialog {
	return &CategoryDialog{}
}

// Open shows the dialog with an empty draft.
func (d *CategoryDialog) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return ErrBusy
	}
	d.open = true
	d.draft = model.CategoryInput{}
	return nil
}

// IsOpen reports whether the dialog is shown.
func (d *CategoryDialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Close hides the dialog and resets its draft.
func (d *CategoryDialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.draft = model.CategoryInput{}
	d.submitting = false
}

// Draft returns the current draft.
func (d *CategoryDialog) Draft() model.CategoryInput {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// SetName sets the category name.
func (d *CategoryDialog) SetName(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}
	d.draft.Name = name
	return nil
}

// SetDefault flags the new category as the tenant default.
func (d *CategoryDialog) SetDefault(v bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}
	d.draft.Default = v
	return nil
}

// Begin starts a submission. An empty name is a no-op.
func (d *CategoryDialog) Begin() (model.CategoryInput, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case !d.open:
		return model.CategoryInput{}, false, ErrClosed
	case d.submitting:
		return model.CategoryInput{}, false, ErrBusy
	case strings.TrimSpace(d.draft.Name) == "":
		return model.CategoryInput{}, false, nil
	}

	d.submitting = true
	return d.draft, true, nil
}

// End finishes a submission. Success closes the dialog and resets the
// draft; failure keeps it open.
func (d *CategoryDialog) End(success bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if success {
		d.open = false
		d.draft = model.CategoryInput{}
	}
	d.submitting = false
}
