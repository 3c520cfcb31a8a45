package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
)

// aggregateRow is one GROUP BY bucket.
type aggregateRow struct {
	Value string `db:"value"`
	Label string `db:"label"`
	Count int    `db:"count"`
}

// CompanyTaskCountByStatus counts tasks matching q per status. Every status
// of the fixed domain is present; "all" is the sum of the other three.
func (s *SQLiteStore) CompanyTaskCountByStatus(
	ctx context.Context,
	tenant string,
	q remote.Query,
) ([]model.Aggregate, error) {
	now := s.now()
	conditions, args := buildConditions(tenant, q, now)

	query := "SELECT " + statusExpr + " AS value, '' AS label, COUNT(*) AS count FROM tasks t" +
		" WHERE " + strings.Join(conditions, " AND ") +
		" GROUP BY value"

	var rows []aggregateRow
	if err := s.db.SelectContext(ctx, &rows, query, append([]any{now.UnixNano()}, args...)...); err != nil {
		return nil, fmt.Errorf("counting tasks by status: %w", err)
	}

	counts := make(map[model.Status]int, len(rows))
	total := 0
	for _, r := range rows {
		counts[model.Status(r.Value)] = r.Count
		total += r.Count
	}
	counts[model.StatusAll] = total

	result := make([]model.Aggregate, 0, len(model.Statuses))
	for _, st := range model.Statuses {
		result = append(result, model.Aggregate{Value: string(st), Count: counts[st]})
	}
	return result, nil
}

// CompanyTaskCountByCategories counts tasks matching q per category. Every
// category of the tenant is present, including empty ones, and the
// uncategorized bucket is reported under the empty key.
func (s *SQLiteStore) CompanyTaskCountByCategories(
	ctx context.Context,
	tenant string,
	q remote.Query,
) ([]model.Aggregate, error) {
	if err := s.requireTenant(ctx, tenant); err != nil {
		return nil, err
	}

	conditions, args := buildConditions(tenant, q, s.now())
	on := strings.Join(conditions, " AND ")

	query := `
		SELECT c.key AS value, c.name AS label, COUNT(t.id) AS count
		FROM categories c
		LEFT JOIN tasks t ON t.category = c.key AND ` + on + `
		WHERE c.tenant = ?
		GROUP BY c.key, c.name
		UNION ALL
		SELECT '' AS value, '' AS label, COUNT(*) AS count
		FROM tasks t
		WHERE t.category IS NULL AND ` + on

	all := make([]any, 0, len(args)*2+1)
	all = append(all, args...)
	all = append(all, tenant)
	all = append(all, args...)

	var rows []aggregateRow
	if err := s.db.SelectContext(ctx, &rows, query, all...); err != nil {
		return nil, fmt.Errorf("counting tasks by category: %w", err)
	}

	return toAggregates(rows), nil
}

// CompanyTaskCountByManagers counts tasks matching q per assigned manager.
// Unassigned tasks are not reported.
func (s *SQLiteStore) CompanyTaskCountByManagers(
	ctx context.Context,
	tenant string,
	q remote.Query,
) ([]model.Aggregate, error) {
	conditions, args := buildConditions(tenant, q, s.now())

	query := `
		SELECT t.manager_id AS value, COALESCE(m.name, '') AS label, COUNT(*) AS count
		FROM tasks t
		LEFT JOIN contacts m ON m.tenant = t.tenant AND m.kind = 'manager' AND m.id = t.manager_id
		WHERE t.manager_id IS NOT NULL AND ` + strings.Join(conditions, " AND ") + `
		GROUP BY t.manager_id, m.name`

	var rows []aggregateRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("counting tasks by manager: %w", err)
	}

	return toAggregates(rows), nil
}

// ListCompanyTaskByType returns the category and manager breakdowns for q.
func (s *SQLiteStore) ListCompanyTaskByType(
	ctx context.Context,
	tenant string,
	q remote.Query,
) (*remote.TypeBreakdown, error) {
	categories, err := s.CompanyTaskCountByCategories(ctx, tenant, q)
	if err != nil {
		return nil, err
	}
	managers, err := s.CompanyTaskCountByManagers(ctx, tenant, q)
	if err != nil {
		return nil, err
	}
	return &remote.TypeBreakdown{Categories: categories, Managers: managers}, nil
}

func toAggregates(rows []aggregateRow) []model.Aggregate {
	result := make([]model.Aggregate, 0, len(rows))
	for _, r := range rows {
		result = append(result, model.Aggregate{Value: r.Value, Label: r.Label, Count: r.Count})
	}
	return result
}
