package taxonomy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
	"github.com/nhle/advisor-tasks/internal/taxonomy"
	"github.com/nhle/advisor-tasks/internal/testutil"
)

func TestDisplayName(t *testing.T) {
	cat := taxonomy.NewCatalog(language.English, map[language.Tag]map[string]string{
		language.English: {taxonomy.MsgNoCategory: "No category", "acme.task.category.call": "Call"},
		language.French:  {taxonomy.MsgNoCategory: "Sans catégorie", "acme.task.category.call": "Appel"},
	})

	tests := []struct {
		name   string
		cat    model.Category
		locale string
		want   string
	}{
		{"sentinel english", model.Category{Key: taxonomy.NoCategoryKey("acme")}, "en", "No category"},
		{"sentinel french region", model.Category{Key: taxonomy.NoCategoryKey("acme"), Name: "raw"}, "fr-CA", "Sans catégorie"},
		{"sentinel unknown locale", model.Category{Key: taxonomy.NoCategoryKey("acme")}, "ja", "No category"},
		{"translated key", model.Category{Key: "acme.task.category.call", Name: "call"}, "fr", "Appel"},
		{"translation missing in locale falls back", model.Category{Key: "acme.task.category.call"}, "de", "Call"},
		{"raw name", model.Category{Key: "acme.task.category.x", Name: "Renewals"}, "fr", "Renewals"},
		{"raw key", model.Category{Key: "acme.task.category.y"}, "en", "acme.task.category.y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cat.DisplayName(tt.cat, tt.locale))
		})
	}
}

func TestLabelFor(t *testing.T) {
	cat := taxonomy.DefaultCatalog()
	cats := []model.Category{{Key: "k1", Name: "Follow-up"}}

	assert.Equal(t, "No category", cat.LabelFor("acme", "", cats, "en"))
	assert.Equal(t, "Ohne Kategorie", cat.LabelFor("acme", "", cats, "de"))
	assert.Equal(t, "Follow-up", cat.LabelFor("acme", "k1", cats, "en"))
	assert.Equal(t, "gone", cat.LabelFor("acme", "gone", cats, "en"))
}

func TestDefaultCategory(t *testing.T) {
	cats := []model.Category{{Key: "a"}, {Key: "b", Default: true}}

	def, ok := taxonomy.DefaultCategory(cats)
	assert.True(t, ok)
	assert.Equal(t, "b", def.Key)

	_, ok = taxonomy.DefaultCategory(cats[:1])
	assert.False(t, ok)
}

func TestFallback(t *testing.T) {
	cats := []model.Category{{Key: "a", Name: "Calls"}, {Key: "b", Name: "General", Default: true}}
	a, unknown := "a", "gone"

	tests := []struct {
		name    string
		task    model.Task
		cats    []model.Category
		wantKey string
		wantOK  bool
	}{
		{"own category", model.Task{Category: &a}, cats, "a", true},
		{"unknown category kept", model.Task{Category: &unknown}, cats, "gone", true},
		{"uncategorized uses default", model.Task{}, cats, "b", true},
		{"uncategorized without default", model.Task{}, cats[:1], "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := taxonomy.Fallback(tt.task, tt.cats)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, got.Key)
		})
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	rec := testutil.NewRecordingStore(s)
	m := taxonomy.NewManager(rec, zerolog.Nop())

	t.Run("duplicate names accepted", func(t *testing.T) {
		a, err := m.CreateCategory(ctx, testutil.Tenant, model.CategoryInput{Name: "Calls"})
		require.NoError(t, err)
		b, err := m.CreateCategory(ctx, testutil.Tenant, model.CategoryInput{Name: "Calls"})
		require.NoError(t, err)
		assert.NotEqual(t, a.Key, b.Key)

		cats, err := m.ListCategories(ctx, testutil.Tenant)
		require.NoError(t, err)
		assert.Len(t, cats, 2)
	})

	t.Run("unknown tenant not retried", func(t *testing.T) {
		before := rec.Calls(testutil.OpTaskCategoryList)
		_, err := m.ListCategories(ctx, "ghost")
		assert.True(t, remote.IsNotFound(err))
		assert.Equal(t, before+1, rec.Calls(testutil.OpTaskCategoryList))
	})

	t.Run("remote failure wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		rec.FailWith(testutil.OpCreateTaskCategory, boom)
		defer rec.Clear(testutil.OpCreateTaskCategory)

		_, err := m.CreateCategory(ctx, testutil.Tenant, model.CategoryInput{Name: "x"})
		assert.ErrorIs(t, err, boom)
	})
}
