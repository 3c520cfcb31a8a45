package testutil

import (
	"context"
	"sync"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
)

// Operation names recorded by RecordingStore.
const (
	OpListCustomerTasks     = "ListCustomerTasks"
	OpListCompanyTaskByType = "ListCompanyTaskByType"
	OpSearch                = "CompanyTaskSearch"
	OpCountByStatus         = "CompanyTaskCountByStatus"
	OpCountByCategories     = "CompanyTaskCountByCategories"
	OpCountByManagers       = "CompanyTaskCountByManagers"
	OpFetchSingleTask       = "FetchSingleTask"
	OpCreateTask            = "CreateTask"
	OpUpdateTask            = "UpdateTask"
	OpCompleteTask          = "CompleteTask"
	OpTaskCategoryList      = "TaskCategoryList"
	OpCreateTaskCategory    = "CreateTaskCategory"
	OpExportTasks           = "ExportTasks"
)

// RecordingStore wraps a remote.Store, counting calls per operation and
// failing operations on demand.
type RecordingStore struct {
	next remote.Store

	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	hooks    map[string]func()
}

var _ remote.Store = (*RecordingStore)(nil)

// NewRecordingStore wraps next.
func NewRecordingStore(next remote.Store) *RecordingStore {
	return &RecordingStore{
		next:     next,
		calls:    make(map[string]int),
		failures: make(map[string]error),
		hooks:    make(map[string]func()),
	}
}

// Calls returns how many times op was invoked.
func (r *RecordingStore) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// FailWith makes every call of op return err until Clear is called.
func (r *RecordingStore) FailWith(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
}

// Clear removes the injected failure of op.
func (r *RecordingStore) Clear(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, op)
}

// OnCall runs fn once, synchronously, at the start of the next call of op.
func (r *RecordingStore) OnCall(op string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[op] = fn
}

func (r *RecordingStore) record(op string) error {
	r.mu.Lock()
	r.calls[op]++
	hook := r.hooks[op]
	delete(r.hooks, op)
	err := r.failures[op]
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (r *RecordingStore) ListCustomerTasks(ctx context.Context, tenant, customerID string) ([]model.Task, error) {
	if err := r.record(OpListCustomerTasks); err != nil {
		return nil, err
	}
	return r.next.ListCustomerTasks(ctx, tenant, customerID)
}

func (r *RecordingStore) ListCompanyTaskByType(ctx context.Context, tenant string, q remote.Query) (*remote.TypeBreakdown, error) {
	if err := r.record(OpListCompanyTaskByType); err != nil {
		return nil, err
	}
	return r.next.ListCompanyTaskByType(ctx, tenant, q)
}

func (r *RecordingStore) CompanyTaskSearch(ctx context.Context, tenant string, q remote.Query) (*remote.SearchResult, error) {
	if err := r.record(OpSearch); err != nil {
		return nil, err
	}
	return r.next.CompanyTaskSearch(ctx, tenant, q)
}

func (r *RecordingStore) CompanyTaskCountByStatus(ctx context.Context, tenant string, q remote.Query) ([]model.Aggregate, error) {
	if err := r.record(OpCountByStatus); err != nil {
		return nil, err
	}
	return r.next.CompanyTaskCountByStatus(ctx, tenant, q)
}

func (r *RecordingStore) CompanyTaskCountByCategories(ctx context.Context, tenant string, q remote.Query) ([]model.Aggregate, error) {
	if err := r.record(OpCountByCategories); err != nil {
		return nil, err
	}
	return r.next.CompanyTaskCountByCategories(ctx, tenant, q)
}

func (r *RecordingStore) CompanyTaskCountByManagers(ctx context.Context, tenant string, q remote.Query) ([]model.Aggregate, error) {
	if err := r.record(OpCountByManagers); err != nil {
		return nil, err
	}
	return r.next.CompanyTaskCountByManagers(ctx, tenant, q)
}

func (r *RecordingStore) FetchSingleTask(ctx context.Context, tenant, id string) (*model.Task, error) {
	if err := r.record(OpFetchSingleTask); err != nil {
		return nil, err
	}
	return r.next.FetchSingleTask(ctx, tenant, id)
}

func (r *RecordingStore) CreateTask(ctx context.Context, tenant string, in model.TaskInput) (*model.Task, error) {
	if err := r.record(OpCreateTask); err != nil {
		return nil, err
	}
	return r.next.CreateTask(ctx, tenant, in)
}

func (r *RecordingStore) UpdateTask(ctx context.Context, tenant, id string, in model.TaskInput) (*model.Task, error) {
	if err := r.record(OpUpdateTask); err != nil {
		return nil, err
	}
	return r.next.UpdateTask(ctx, tenant, id, in)
}

func (r *RecordingStore) CompleteTask(ctx context.Context, tenant, id string) (*model.Task, error) {
	if err := r.record(OpCompleteTask); err != nil {
		return nil, err
	}
	return r.next.CompleteTask(ctx, tenant, id)
}

func (r *RecordingStore) TaskCategoryList(ctx context.Context, tenant string) ([]model.Category, error) {
	if err := r.record(OpTaskCategoryList); err != nil {
		return nil, err
	}
	return r.next.TaskCategoryList(ctx, tenant)
}

func (r *RecordingStore) CreateTaskCategory(ctx context.Context, tenant string, in model.CategoryInput) (*model.Category, error) {
	if err := r.record(OpCreateTaskCategory); err != nil {
		return nil, err
	}
	return r.next.CreateTaskCategory(ctx, tenant, in)
}

func (r *RecordingStore) ExportTasks(ctx context.Context, tenant string, customerID *string) (string, error) {
	if err := r.record(OpExportTasks); err != nil {
		return "", err
	}
	return r.next.ExportTasks(ctx, tenant, customerID)
}
