// Package remote defines the contract of the external task-and-category
// store. The engine reaches tasks only through these request/response
// operations; reads are safe to retry, mutations are not.
package remote

import (
	"context"

	"github.com/nhle/advisor-tasks/internal/model"
)

// SearchResult is one page of the task list plus the total match count.
type SearchResult struct {
	Count int          `json:"count"`
	Tasks []model.Task `json:"tasks"`
}

// TypeBreakdown groups the tenant's tasks by category and by manager.
type TypeBreakdown struct {
	Categories []model.Aggregate `json:"categories"`
	Managers   []model.Aggregate `json:"managers"`
}

// Store is the external task-and-category store.
type Store interface {
	ListCustomerTasks(ctx context.Context, tenant, customerID string) ([]model.Task, error)
	ListCompanyTaskByType(ctx context.Context, tenant string, q Query) (*TypeBreakdown, error)
	CompanyTaskSearch(ctx context.Context, tenant string, q Query) (*SearchResult, error)

	CompanyTaskCountByStatus(ctx context.Context, tenant string, q Query) ([]model.Aggregate, error)
	CompanyTaskCountByCategories(ctx context.Context, tenant string, q Query) ([]model.Aggregate, error)
	CompanyTaskCountByManagers(ctx context.Context, tenant string, q Query) ([]model.Aggregate, error)

	// FetchSingleTask returns an error satisfying IsNotFound when the task
	// does not exist.
	FetchSingleTask(ctx context.Context, tenant, id string) (*model.Task, error)

	CreateTask(ctx context.Context, tenant string, in model.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, tenant, id string, in model.TaskInput) (*model.Task, error)
	CompleteTask(ctx context.Context, tenant, id string) (*model.Task, error)

	// TaskCategoryList returns an error satisfying IsNotFound when the
	// tenant is unknown.
	TaskCategoryList(ctx context.Context, tenant string) ([]model.Category, error)
	CreateTaskCategory(ctx context.Context, tenant string, in model.CategoryInput) (*model.Category, error)

	// ExportTasks returns a download URL. A nil customerID exports every
	// task of the tenant.
	ExportTasks(ctx context.Context, tenant string, customerID *string) (string, error)
}
