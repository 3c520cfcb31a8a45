// Package taxonomy manages the per-tenant task category list and renders
// category labels.
package taxonomy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
)

// Manager reads and creates categories through the remote store.
type Manager struct {
	store remote.Store
	log   zerolog.Logger
}

// NewManager creates a taxonomy manager.
func NewManager(store remote.Store, log zerolog.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// ListCategories returns the tenant's categories. An unknown tenant yields
// an error satisfying remote.IsNotFound; it is not retried.
func (m *Manager) ListCategories(ctx context.Context, tenant string) ([]model.Category, error) {
	cats, err := m.store.TaskCategoryList(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list categories for %s: %w", tenant, err)
	}
	return cats, nil
}

// CreateCategory creates a category. Names are not deduplicated: creating
// an existing name yields a second category with its own key.
func (m *Manager) CreateCategory(ctx context.Context, tenant string, in model.CategoryInput) (*model.Category, error) {
	cat, err := m.store.CreateTaskCategory(ctx, tenant, in)
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", in.Name, err)
	}
	m.log.Debug().Str("tenant", tenant).Str("key", cat.Key).Msg("category created")
	return cat, nil
}

// DefaultCategory returns the first category flagged as default.
func DefaultCategory(categories []model.Category) (model.Category, bool) {
	for _, c := range categories {
		if c.Default {
			return c, true
		}
	}
	return model.Category{}, false
}

// Fallback resolves the category shown for t. A categorized task resolves
// to its own category, known or not; an uncategorized task resolves to the
// tenant's default category when one exists.
func Fallback(t model.Task, categories []model.Category) (model.Category, bool) {
	if t.Category == nil {
		return DefaultCategory(categories)
	}
	for _, c := range categories {
		if c.Key == *t.Category {
			return c, true
		}
	}
	return model.Category{Key: *t.Category}, true
}
