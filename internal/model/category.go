package model

import "time"

// Category is a tenant-scoped task category. It is referenced by key from
// tasks and is never deleted.
type Category struct {
	Key     string    `json:"key" db:"key"`
	Tenant  string    `json:"tenant" db:"tenant"`
	Name    string    `json:"name" db:"name"`
	Default bool      `json:"default" db:"is_default"`
	Created time.Time `json:"created" db:"created_at"`
}

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name    string `json:"name"`
	Default bool   `json:"default,omitempty"`
}
