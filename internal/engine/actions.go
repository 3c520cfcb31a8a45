package engine

import (
	"context"
	"fmt"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/session"
)

// SelectStatus toggles the status filter.
func (e *Engine) SelectStatus(s model.Status) error { return e.filters.SelectStatus(s) }

// SelectCategory toggles the category filter; "" selects uncategorized.
func (e *Engine) SelectCategory(key string) { e.filters.SelectCategory(key) }

// SelectManager toggles the manager filter.
func (e *Engine) SelectManager(id string) { e.filters.SelectManager(id) }

// SetContractNumber filters by contract number.
func (e *Engine) SetContractNumber(n string) { e.filters.SetContractNumber(n) }

// SelectTask opens a task in the detail pane.
func (e *Engine) SelectTask(id string) { e.filters.SelectTask(id) }

// SetPage moves to page n.
func (e *Engine) SetPage(n int) error { return e.filters.SetPage(n) }

// SetTake changes the page size.
func (e *Engine) SetTake(n int) error { return e.filters.SetTake(n) }

// ResetFilters returns to the default view.
func (e *Engine) ResetFilters() { e.filters.Reset() }

// OnFilterChange registers fn for every filter change.
func (e *Engine) OnFilterChange(fn func(model.Filter)) func() { return e.filters.OnChange(fn) }

// Dialog returns the task dialog state.
func (e *Engine) Dialog() *session.Session { return e.dialog }

// CategoryDialog returns the create-category dialog state.
func (e *Engine) CategoryDialog() *session.CategoryDialog { return e.categoryDialog }

// OpenCreate opens the task dialog for a new task scheduled now.
func (e *Engine) OpenCreate() error {
	return e.dialog.OpenCreate(e.now())
}

// OpenEdit loads a task and opens the dialog on it.
func (e *Engine) OpenEdit(ctx context.Context, id string) error {
	task, err := e.fetchDetail(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("open task %s: not found", id)
	}
	return e.dialog.OpenEdit(*task)
}

// EditDraft changes the draft of the open task dialog.
func (e *Engine) EditDraft(fn func(*session.Draft)) error {
	return e.dialog.Edit(fn)
}

// CloseDialog discards the task dialog.
func (e *Engine) CloseDialog() { e.dialog.Close() }

// SubmitTask submits the task dialog. refetch, when set, runs after a
// successful update.
func (e *Engine) SubmitTask(ctx context.Context, refetch func(context.Context)) (SubmitResult, error) {
	return e.protocol.SubmitTask(ctx, e.tenant, e.dialog, refetch)
}

// CompleteTask marks a task completed.
func (e *Engine) CompleteTask(ctx context.Context, id string) (*model.Task, error) {
	return e.protocol.CompleteTask(ctx, e.tenant, id)
}

// OpenCategoryDialog opens the create-category dialog.
func (e *Engine) OpenCategoryDialog() error { return e.categoryDialog.Open() }

// SubmitCategory submits the create-category dialog.
func (e *Engine) SubmitCategory(ctx context.Context) (SubmitResult, error) {
	return e.protocol.SubmitCategory(ctx, e.tenant, e.categoryDialog)
}
