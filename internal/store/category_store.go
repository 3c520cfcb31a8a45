package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
)

// TaskCategoryList retrieves all categories of a tenant ordered by name.
func (s *SQLiteStore) TaskCategoryList(
	ctx context.Context,
	tenant string,
) ([]model.Category, error) {
	if err := s.requireTenant(ctx, tenant); err != nil {
		return nil, err
	}

	var categories []model.Category
	err := s.db.SelectContext(ctx, &categories,
		"SELECT key, tenant, name, is_default, created_at FROM categories WHERE tenant = ? ORDER BY name, key",
		tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	return categories, nil
}

// CreateTaskCategory inserts a new category under a generated key. Names
// are not deduplicated. Creating a default category clears the flag on the
// tenant's previous default.
func (s *SQLiteStore) CreateTaskCategory(
	ctx context.Context,
	tenant string,
	in model.CategoryInput,
) (*model.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: category name must not be empty", remote.ErrInvalidInput)
	}
	if err := s.requireTenant(ctx, tenant); err != nil {
		return nil, err
	}

	cat := model.Category{
		Key:     CategoryKey(tenant, uuid.New().String()),
		Tenant:  tenant,
		Name:    in.Name,
		Default: in.Default,
		Created: s.now().UTC(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if cat.Default {
		if _, err := tx.ExecContext(ctx,
			"UPDATE categories SET is_default = 0 WHERE tenant = ?", tenant); err != nil {
			return nil, fmt.Errorf("clearing default category: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO categories (key, tenant, name, is_default, created_at) VALUES (?, ?, ?, ?, ?)",
		cat.Key, cat.Tenant, cat.Name, boolToInt(cat.Default), cat.Created,
	); err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing category: %w", err)
	}

	return &cat, nil
}

// CategoryKey builds the tenant-scoped key of a category.
func CategoryKey(tenant, id string) string {
	return tenant + ".task.category." + id
}
