package httpclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
)

var _ remote.Store = (*Client)(nil)

func tenantPath(tenant string, parts ...string) string {
	p := "/api/tenants/" + url.PathEscape(tenant)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *Client) ListCustomerTasks(ctx context.Context, tenant, customerID string) ([]model.Task, error) {
	var tasks []model.Task
	err := c.get(ctx, "list customer tasks", tenantPath(tenant, "customers", url.PathEscape(customerID), "tasks"), nil, &tasks)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) ListCompanyTaskByType(ctx context.Context, tenant string, q remote.Query) (*remote.TypeBreakdown, error) {
	var res remote.TypeBreakdown
	if err := c.get(ctx, "list tasks by type", tenantPath(tenant, "tasks", "by-type"), remote.EncodeQuery(q), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CompanyTaskSearch(ctx context.Context, tenant string, q remote.Query) (*remote.SearchResult, error) {
	var res remote.SearchResult
	if err := c.get(ctx, "search tasks", tenantPath(tenant, "tasks"), remote.EncodeQuery(q), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CompanyTaskCountByStatus(ctx context.Context, tenant string, q remote.Query) ([]model.Aggregate, error) {
	return c.counts(ctx, "count tasks by status", tenant, "status", q)
}

func (c *Client) CompanyTaskCountByCategories(ctx context.Context, tenant string, q remote.Query) ([]model.Aggregate, error) {
	return c.counts(ctx, "count tasks by category", tenant, "categories", q)
}

func (c *Client) CompanyTaskCountByManagers(ctx context.Context, tenant string, q remote.Query) ([]model.Aggregate, error) {
	return c.counts(ctx, "count tasks by manager", tenant, "managers", q)
}

func (c *Client) counts(ctx context.Context, op, tenant, dimension string, q remote.Query) ([]model.Aggregate, error) {
	var res []model.Aggregate
	if err := c.get(ctx, op, tenantPath(tenant, "tasks", "counts", dimension), remote.EncodeQuery(q), &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) FetchSingleTask(ctx context.Context, tenant, id string) (*model.Task, error) {
	var task model.Task
	if err := c.get(ctx, "fetch task", tenantPath(tenant, "tasks", url.PathEscape(id)), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CreateTask(ctx context.Context, tenant string, in model.TaskInput) (*model.Task, error) {
	var task model.Task
	if err := c.send(ctx, "create task", http.MethodPost, tenantPath(tenant, "tasks"), in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, tenant, id string, in model.TaskInput) (*model.Task, error) {
	var task model.Task
	if err := c.send(ctx, "update task", http.MethodPut, tenantPath(tenant, "tasks", url.PathEscape(id)), in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CompleteTask(ctx context.Context, tenant, id string) (*model.Task, error) {
	var task model.Task
	if err := c.send(ctx, "complete task", http.MethodPost, tenantPath(tenant, "tasks", url.PathEscape(id), "complete"), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) TaskCategoryList(ctx context.Context, tenant string) ([]model.Category, error) {
	var cats []model.Category
	if err := c.get(ctx, "list categories", tenantPath(tenant, "categories"), nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *Client) CreateTaskCategory(ctx context.Context, tenant string, in model.CategoryInput) (*model.Category, error) {
	var cat model.Category
	if err := c.send(ctx, "create category", http.MethodPost, tenantPath(tenant, "categories"), in, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

type exportRequest struct {
	CustomerID *string `json:"customerId,omitempty"`
}

type exportResponse struct {
	URL string `json:"url"`
}

func (c *Client) ExportTasks(ctx context.Context, tenant string, customerID *string) (string, error) {
	var res exportResponse
	err := c.send(ctx, "export tasks", http.MethodPost, tenantPath(tenant, "exports"), exportRequest{CustomerID: customerID}, &res)
	if err != nil {
		return "", err
	}
	return res.URL, nil
}
