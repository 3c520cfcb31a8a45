package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/advisor-tasks/internal/model"
)

var now = time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)

func TestSession_Create(t *testing.T) {
	s := New()

	require.NoError(t, s.OpenCreate(now))
	state, id := s.State()
	assert.Equal(t, Creating, state)
	assert.Empty(t, id)
	assert.Equal(t, Draft{Schedule: now}, s.Draft())

	require.NoError(t, s.Edit(func(d *Draft) {
		d.Title = "Call back"
		d.Category = model.Ptr("k1")
	}))

	sub, ok, err := s.Begin()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Creating, sub.Mode)
	assert.Equal(t, "Call back", sub.Input.Title)
	assert.True(t, sub.Input.Schedule.Equal(now))

	_, _, err = s.Begin()
	assert.ErrorIs(t, err, ErrBusy, "one submission in flight")

	s.End(true)
	state, _ = s.State()
	assert.Equal(t, Closed, state)
	assert.Equal(t, Draft{}, s.Draft())
}

func TestSession_EditHydratesDraft(t *testing.T) {
	s := New()
	task := model.Task{
		ID:             "t-1",
		Title:          "Review",
		Content:        "Annual review",
		Category:       model.Ptr("k2"),
		ContractNumber: "C-9",
		Schedule:       now.Add(24 * time.Hour),
		Manager:        &model.Ref{ID: "m-1", Name: "Ada"},
		Customer:       &model.Ref{ID: "c-1"},
	}

	require.NoError(t, s.OpenEdit(task))
	state, id := s.State()
	assert.Equal(t, Editing, state)
	assert.Equal(t, "t-1", id)

	d := s.Draft()
	assert.Equal(t, "Review", d.Title)
	assert.Equal(t, "Annual review", d.Content)
	assert.Equal(t, "k2", *d.Category)
	assert.Equal(t, "C-9", d.ContractNumber)
	assert.Equal(t, "m-1", *d.ManagerID)
	assert.Equal(t, "c-1", *d.CustomerID)
	assert.Nil(t, d.CompanyID)

	// The draft does not alias the task.
	*d.Category = "changed"
	assert.Equal(t, "k2", *task.Category)
	assert.Equal(t, "k2", *s.Draft().Category)
}

func TestSession_EmptyTitleIsNoOp(t *testing.T) {
	s := New()
	require.NoError(t, s.OpenCreate(now))
	require.NoError(t, s.Edit(func(d *Draft) { d.Title = "   " }))

	_, ok, err := s.Begin()
	assert.NoError(t, err)
	assert.False(t, ok)

	state, _ := s.State()
	assert.Equal(t, Creating, state, "dialog stays open")
}

func TestSession_FailureKeepsDraft(t *testing.T) {
	s := New()
	require.NoError(t, s.OpenCreate(now))
	require.NoError(t, s.Edit(func(d *Draft) { d.Title = "Keep me" }))

	_, ok, err := s.Begin()
	require.NoError(t, err)
	require.True(t, ok)
	s.End(false)

	state, _ := s.State()
	assert.Equal(t, Creating, state)
	assert.Equal(t, "Keep me", s.Draft().Title)

	_, ok, err = s.Begin()
	assert.NoError(t, err, "resubmission is allowed after a failure")
	assert.True(t, ok)
}

func TestSession_InvalidTransitions(t *testing.T) {
	s := New()

	_, _, err := s.Begin()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Edit(func(*Draft) {}), ErrClosed)

	require.NoError(t, s.OpenCreate(now))
	assert.ErrorIs(t, s.OpenEdit(model.Task{ID: "t-1"}), ErrBusy)
	assert.ErrorIs(t, s.OpenCreate(now), ErrBusy)

	s.Close()
	assert.NoError(t, s.OpenEdit(model.Task{ID: "t-1"}))
}

func TestCategoryDialog(t *testing.T) {
	d := NewCategoryDialog()

	assert.ErrorIs(t, d.SetName("x"), ErrClosed)
	require.NoError(t, d.Open())
	assert.ErrorIs(t, d.Open(), ErrBusy)

	_, ok, err := d.Begin()
	require.NoError(t, err)
	assert.False(t, ok, "empty name is a no-op")

	require.NoError(t, d.SetName("Renewals"))
	require.NoError(t, d.SetDefault(true))

	in, ok, err := d.Begin()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.CategoryInput{Name: "Renewals", Default: true}, in)

	d.End(false)
	assert.True(t, d.IsOpen())
	assert.Equal(t, "Renewals", d.Draft().Name)

	_, _, err = d.Begin()
	require.NoError(t, err)
	d.End(true)
	assert.False(t, d.IsOpen())
	assert.Equal(t, model.CategoryInput{}, d.Draft())
}
