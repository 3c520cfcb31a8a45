// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/store"
)

// Tenant is the tenant seeded by NewTestStore.
const Tenant = "acme"

// NewTestStore creates an in-memory SQLiteStore with all migrations applied
// and Tenant seeded. It automatically closes the store when the test completes.
func NewTestStore(t *testing.T, opts ...store.Option) *store.SQLiteStore {
	t.Helper()

	opts = append([]store.Option{store.WithExports(t.TempDir(), "")}, opts...)
	s, err := store.NewSQLiteStore(":memory:", opts...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	require.NoError(t, s.EnsureTenant(context.Background(), Tenant, "Acme Advisory"))

	return s
}

// Clock is a settable clock for tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to now.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MustCategory creates a category and returns its key.
func MustCategory(t *testing.T, s *store.SQLiteStore, name string) string {
	t.Helper()
	cat, err := s.CreateTaskCategory(context.Background(), Tenant, model.CategoryInput{Name: name})
	require.NoError(t, err)
	return cat.Key
}

// MustManager records a manager contact and returns its id.
func MustManager(t *testing.T, s *store.SQLiteStore, id, name string) string {
	t.Helper()
	require.NoError(t, s.UpsertContact(context.Background(), Tenant, store.ContactManager, id, name))
	return id
}

// MustTask creates a task and returns it.
func MustTask(t *testing.T, s *store.SQLiteStore, in model.TaskInput) model.Task {
	t.Helper()
	if in.Title == "" {
		in.Title = "task"
	}
	task, err := s.CreateTask(context.Background(), Tenant, in)
	require.NoError(t, err)
	return *task
}
