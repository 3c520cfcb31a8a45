package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
)

var exportHeader = []string{
	"id", "title", "content", "category", "contract_number", "schedule",
	"status", "completed", "customer", "company", "manager",
}

// ExportTasks writes the tenant's tasks (optionally of one customer) to a
// CSV file in the export directory and returns its download URL.
func (s *SQLiteStore) ExportTasks(
	ctx context.Context,
	tenant string,
	customerID *string,
) (string, error) {
	if err := s.requireTenant(ctx, tenant); err != nil {
		return "", err
	}

	var (
		tasks []model.Task
		err   error
	)
	if customerID != nil {
		tasks, err = s.ListCustomerTasks(ctx, tenant, *customerID)
	} else {
		var res *remote.SearchResult
		res, err = s.CompanyTaskSearch(ctx, tenant, remote.Query{})
		if res != nil {
			tasks = res.Tasks
		}
	}
	if err != nil {
		return "", fmt.Errorf("loading tasks for export: %w", err)
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.csv", tenant, uuid.New().String())
	path := filepath.Join(s.exportDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	now := s.now()
	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return "", fmt.Errorf("writing export header: %w", err)
	}
	for _, t := range tasks {
		if err := w.Write(exportRecord(t, now)); err != nil {
			return "", fmt.Errorf("writing export row %s: %w", t.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing export: %w", err)
	}

	s.log.Info().Str("tenant", tenant).Int("tasks", len(tasks)).Str("file", name).Msg("exported tasks")

	if s.exportURL == "" {
		return "file://" + path, nil
	}
	return s.exportURL + "/exports/" + name, nil
}

func exportRecord(t model.Task, now time.Time) []string {
	category := ""
	if t.Category != nil {
		category = *t.Category
	}
	return []string{
		t.ID,
		t.Title,
		t.Content,
		category,
		t.ContractNumber,
		t.Schedule.Format(time.RFC3339),
		string(model.Classify(t, now).Status()),
		strconv.FormatBool(t.Completed),
		refName(t.Customer),
		refName(t.Company),
		refName(t.Manager),
	}
}

func refName(r *model.Ref) string {
	if r == nil {
		return ""
	}
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
