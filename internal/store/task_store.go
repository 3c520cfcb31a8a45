package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
)

// taskRow is the flattened shape of a task joined with its contact names.
// Schedule is stored as Unix nanoseconds so the lateness comparison in SQL
// matches time.Time.Before exactly.
type taskRow struct {
	ID             string         `db:"id"`
	Tenant         string         `db:"tenant"`
	Title          string         `db:"title"`
	Content        string         `db:"content"`
	Category       sql.NullString `db:"category"`
	ContractNumber string         `db:"contract_number"`
	Schedule       int64          `db:"schedule"`
	Completed      bool           `db:"completed"`
	CustomerID     sql.NullString `db:"customer_id"`
	CustomerName   sql.NullString `db:"customer_name"`
	CompanyID      sql.NullString `db:"company_id"`
	CompanyName    sql.NullString `db:"company_name"`
	ManagerID      sql.NullString `db:"manager_id"`
	ManagerName    sql.NullString `db:"manager_name"`
	EntityType     string         `db:"entity_type"`
	EntityID       string         `db:"entity_id"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r taskRow) toModel() model.Task {
	t := model.Task{
		ID:             r.ID,
		Tenant:         r.Tenant,
		Title:          r.Title,
		Content:        r.Content,
		ContractNumber: r.ContractNumber,
		Schedule:       time.Unix(0, r.Schedule).UTC(),
		Completed:      r.Completed,
		Created:        r.CreatedAt,
		Updated:        r.UpdatedAt,
		Customer:       toRef(r.CustomerID, r.CustomerName),
		Company:        toRef(r.CompanyID, r.CompanyName),
		Manager:        toRef(r.ManagerID, r.ManagerName),
	}
	if r.Category.Valid {
		t.Category = &r.Category.String
	}
	if r.EntityType != "" {
		t.EntityRelated = &model.EntityRef{Type: r.EntityType, ID: r.EntityID}
	}
	return t
}

func toRef(id, name sql.NullString) *model.Ref {
	if !id.Valid {
		return nil
	}
	return &model.Ref{ID: id.String, Name: name.String}
}

const taskSelect = `
	SELECT
		t.id, t.tenant, t.title, t.content, t.category, t.contract_number,
		t.schedule, t.completed,
		t.customer_id, cu.name AS customer_name,
		t.company_id, co.name AS company_name,
		t.manager_id, m.name AS manager_name,
		t.entity_type, t.entity_id, t.created_at, t.updated_at
	FROM tasks t
	LEFT JOIN contacts cu ON cu.tenant = t.tenant AND cu.kind = 'customer' AND cu.id = t.customer_id
	LEFT JOIN contacts co ON co.tenant = t.tenant AND co.kind = 'company' AND co.id = t.company_id
	LEFT JOIN contacts m ON m.tenant = t.tenant AND m.kind = 'manager' AND m.id = t.manager_id`

// statusExpr classifies a row exactly like model.Classify. Its single
// argument is the current time in Unix nanoseconds.
const statusExpr = `CASE
	WHEN t.completed = 1 THEN 'completed'
	WHEN t.schedule < ? THEN 'late'
	ELSE 'in_progress' END`

// buildConditions translates a query into WHERE conditions on the tasks
// table aliased as t.
func buildConditions(tenant string, q remote.Query, now time.Time) ([]string, []any) {
	conditions := []string{"t.tenant = ?"}
	args := []any{tenant}

	switch q.Status {
	case model.StatusInProgress:
		conditions = append(conditions, "t.completed = 0 AND t.schedule >= ?")
		args = append(args, now.UnixNano())
	case model.StatusLate:
		conditions = append(conditions, "t.completed = 0 AND t.schedule < ?")
		args = append(args, now.UnixNano())
	case model.StatusCompleted:
		conditions = append(conditions, "t.completed = 1")
	}

	if q.Category != nil {
		if *q.Category == "" {
			conditions = append(conditions, "t.category IS NULL")
		} else {
			conditions = append(conditions, "t.category = ?")
			args = append(args, *q.Category)
		}
	}
	if q.Manager != nil {
		conditions = append(conditions, "t.manager_id = ?")
		args = append(args, *q.Manager)
	}
	if q.ContractNumber != nil {
		conditions = append(conditions, "t.contract_number = ?")
		args = append(args, *q.ContractNumber)
	}

	return conditions, args
}

// CompanyTaskSearch returns one page of tasks matching q and the total count.
func (s *SQLiteStore) CompanyTaskSearch(
	ctx context.Context,
	tenant string,
	q remote.Query,
) (*remote.SearchResult, error) {
	conditions, args := buildConditions(tenant, q, s.now())
	where := " WHERE " + strings.Join(conditions, " AND ")

	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM tasks t"+where, args...); err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}

	query := taskSelect + where + " ORDER BY t.schedule ASC, t.id ASC"
	if q.Take > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", q.Take, q.Offset())
	}

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("searching tasks: %w", err)
	}

	result := &remote.SearchResult{Count: count, Tasks: make([]model.Task, 0, len(rows))}
	for _, r := range rows {
		result.Tasks = append(result.Tasks, r.toModel())
	}
	return result, nil
}

// ListCustomerTasks returns every task of one customer ordered by schedule.
func (s *SQLiteStore) ListCustomerTasks(
	ctx context.Context,
	tenant, customerID string,
) ([]model.Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows,
		taskSelect+" WHERE t.tenant = ? AND t.customer_id = ? ORDER BY t.schedule ASC, t.id ASC",
		tenant, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tasks for customer %s: %w", customerID, err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toModel())
	}
	return tasks, nil
}

// FetchSingleTask retrieves a single task by its ID.
func (s *SQLiteStore) FetchSingleTask(
	ctx context.Context,
	tenant, id string,
) (*model.Task, error) {
	var r taskRow
	err := s.db.GetContext(ctx, &r, taskSelect+" WHERE t.tenant = ? AND t.id = ?", tenant, id)
	if isNoRows(err) {
		return nil, fmt.Errorf("task %s: %w", id, remote.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}

	task := r.toModel()
	return &task, nil
}

// CreateTask inserts a new task with a generated id.
func (s *SQLiteStore) CreateTask(
	ctx context.Context,
	tenant string,
	in model.TaskInput,
) (*model.Task, error) {
	if err := s.validateInput(ctx, tenant, in); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := s.now().UTC()
	entityType, entityID := entityColumns(in.EntityRelated)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, tenant, title, content, category, contract_number,
			schedule, completed, customer_id, company_id, manager_id,
			entity_type, entity_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
		id, tenant, in.Title, in.Content, nullableKey(in.Category), in.ContractNumber,
		in.Schedule.UnixNano(), in.CustomerID, in.CompanyID, in.ManagerID,
		entityType, entityID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	return s.FetchSingleTask(ctx, tenant, id)
}

// UpdateTask replaces the editable fields of a task. Completion is left
// untouched.
func (s *SQLiteStore) UpdateTask(
	ctx context.Context,
	tenant, id string,
	in model.TaskInput,
) (*model.Task, error) {
	if err := s.validateInput(ctx, tenant, in); err != nil {
		return nil, err
	}

	entityType, entityID := entityColumns(in.EntityRelated)
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, content = ?, category = ?, contract_number = ?,
			schedule = ?, customer_id = ?, company_id = ?, manager_id = ?,
			entity_type = ?, entity_id = ?, updated_at = ?
		WHERE tenant = ? AND id = ?`,
		in.Title, in.Content, nullableKey(in.Category), in.ContractNumber,
		in.Schedule.UnixNano(), in.CustomerID, in.CompanyID, in.ManagerID,
		entityType, entityID, s.now().UTC(),
		tenant, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("task %s: %w", id, remote.ErrNotFound)
	}

	return s.FetchSingleTask(ctx, tenant, id)
}

// CompleteTask marks a task completed. There is no inverse operation.
func (s *SQLiteStore) CompleteTask(
	ctx context.Context,
	tenant, id string,
) (*model.Task, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET completed = 1, updated_at = ? WHERE tenant = ? AND id = ?",
		s.now().UTC(), tenant, id,
	)
	if err != nil {
		return nil, fmt.Errorf("completing task %s: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("task %s: %w", id, remote.ErrNotFound)
	}

	return s.FetchSingleTask(ctx, tenant, id)
}

// validateInput checks the tenant exists, the title is present, and a
// non-empty category key belongs to the tenant.
func (s *SQLiteStore) validateInput(ctx context.Context, tenant string, in model.TaskInput) error {
	if err := s.requireTenant(ctx, tenant); err != nil {
		return err
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: task title must not be empty", remote.ErrInvalidInput)
	}
	if in.Schedule.IsZero() {
		return fmt.Errorf("%w: task schedule must be set", remote.ErrInvalidInput)
	}
	if in.Schedule.Before(minSchedule) || in.Schedule.After(maxSchedule) {
		return fmt.Errorf("%w: task schedule %s out of range", remote.ErrInvalidInput, in.Schedule.Format(time.RFC3339))
	}
	if ref := in.EntityRelated; ref != nil && (ref.Type == "" || ref.ID == "") {
		return fmt.Errorf("%w: related entity needs a type and an id", remote.ErrInvalidInput)
	}
	if key := nullableKey(in.Category); key != nil {
		var n int
		err := s.db.GetContext(ctx, &n,
			"SELECT COUNT(*) FROM categories WHERE tenant = ? AND key = ?", tenant, *key)
		if err != nil {
			return fmt.Errorf("checking category %s: %w", *key, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: unknown category %q", remote.ErrInvalidInput, *key)
		}
	}
	return nil
}

// Bounds of a schedule representable in Unix nanoseconds.
var (
	minSchedule = time.Unix(0, math.MinInt64)
	maxSchedule = time.Unix(0, math.MaxInt64)
)

func entityColumns(ref *model.EntityRef) (string, string) {
	if ref == nil {
		return "", ""
	}
	return ref.Type, ref.ID
}

// nullableKey maps both nil and "" to SQL NULL.
func nullableKey(key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	return key
}
