// Package aggregate computes the status, category and manager counts shown
// beside the task list. Each dimension is counted over the filter with that
// dimension removed, so a count matches the rows the list shows once the
// value is selected.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nhle/advisor-tasks/internal/cache"
	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
)

// Project derives the query for dimension dim from a filter snapshot. The
// dimension itself is dropped along with the detail selection and
// pagination.
func Project(f model.Filter, dim model.Dimension) remote.Query {
	q := remote.ListQuery(f)
	q.Page = 0
	q.Take = 0
	switch dim {
	case model.DimensionStatus:
		q.Status = ""
	case model.DimensionCategory:
		q.Category = nil
	case model.DimensionManager:
		q.Manager = nil
	}
	return q
}

// Less orders category and manager buckets.
type Less func(a, b model.Aggregate) bool

// Labeler renders the display label of a bucket.
type Labeler func(tenant string, a model.Aggregate) string

// Section is the outcome of one dimension. A failed section carries its
// error and, when available, last-known-good items flagged Stale.
type Section struct {
	Dimension model.Dimension
	Items     []model.Aggregate
	Stale     bool
	Err       error
}

// Snapshot holds the three dimensions loaded from one filter.
type Snapshot struct {
	Status     Section
	Categories Section
	Managers   Section
}

// Engine loads aggregate counts through cached views.
type Engine struct {
	store  remote.Store
	cache  *cache.Cache
	locale language.Tag
	log    zerolog.Logger

	status     *cache.View[[]model.Aggregate]
	categories *cache.View[[]model.Aggregate]
	managers   *cache.View[[]model.Aggregate]

	labelers map[model.Dimension]Labeler
}

// NewEngine creates an aggregation engine sorting labels for locale.
func NewEngine(store remote.Store, c *cache.Cache, locale string, log zerolog.Logger) *Engine {
	return &Engine{
		store:      store,
		cache:      c,
		locale:     language.Make(locale),
		log:        log,
		status:     cache.NewView[[]model.Aggregate](c),
		categories: cache.NewView[[]model.Aggregate](c),
		managers:   cache.NewView[[]model.Aggregate](c),
		labelers:   make(map[model.Dimension]Labeler),
	}
}

// SetLabeler installs the label renderer of dim. Labels are applied after
// the cache so they follow locale and taxonomy changes.
func (e *Engine) SetLabeler(dim model.Dimension, fn Labeler) {
	e.labelers[dim] = fn
}

// ByLabel orders buckets alphabetically by label using the engine locale,
// then by value.
func (e *Engine) ByLabel() Less {
	col := collate.New(e.locale)
	return func(a, b model.Aggregate) bool {
		if c := col.CompareString(a.Label, b.Label); c != 0 {
			return c < 0
		}
		return a.Value < b.Value
	}
}

// Status counts tasks per status in the fixed order all, in_progress,
// late, completed. Missing statuses are reported as zero.
func (e *Engine) Status(ctx context.Context, tenant string, f model.Filter) Section {
	q := Project(f, model.DimensionStatus)
	sec := e.load(ctx, tenant, model.DimensionStatus, cache.KindCountStatus, e.status, q,
		func(ctx context.Context) ([]model.Aggregate, error) {
			return e.store.CompanyTaskCountByStatus(ctx, tenant, q)
		})
	if sec.Err == nil || sec.Items != nil {
		sec.Items = e.label(tenant, model.DimensionStatus, OrderStatus(sec.Items))
	}
	return sec
}

// Categories counts tasks per category, including the uncategorized
// bucket under the empty value. A nil less sorts by label.
func (e *Engine) Categories(ctx context.Context, tenant string, f model.Filter, less Less) Section {
	q := Project(f, model.DimensionCategory)
	sec := e.load(ctx, tenant, model.DimensionCategory, cache.KindCountCategory, e.categories, q,
		func(ctx context.Context) ([]model.Aggregate, error) {
			return e.store.CompanyTaskCountByCategories(ctx, tenant, q)
		})
	sec.Items = e.sorted(tenant, model.DimensionCategory, sec.Items, less)
	return sec
}

// Managers counts tasks per assigned manager. A nil less sorts by label.
func (e *Engine) Managers(ctx context.Context, tenant string, f model.Filter, less Less) Section {
	q := Project(f, model.DimensionManager)
	sec := e.load(ctx, tenant, model.DimensionManager, cache.KindCountManager, e.managers, q,
		func(ctx context.Context) ([]model.Aggregate, error) {
			return e.store.CompanyTaskCountByManagers(ctx, tenant, q)
		})
	sec.Items = e.sorted(tenant, model.DimensionManager, sec.Items, less)
	return sec
}

// Snapshot loads all three dimensions of f concurrently. A failing
// section never blocks the others.
func (e *Engine) Snapshot(ctx context.Context, tenant string, f model.Filter) Snapshot {
	f = f.Clone()

	var snap Snapshot
	wg := conc.NewWaitGroup()
	wg.Go(func() { snap.Status = e.Status(ctx, tenant, f) })
	wg.Go(func() { snap.Categories = e.Categories(ctx, tenant, f, nil) })
	wg.Go(func() { snap.Managers = e.Managers(ctx, tenant, f, nil) })
	wg.Wait()

	return snap
}

func (e *Engine) load(
	ctx context.Context,
	tenant string,
	dim model.Dimension,
	kind cache.Kind,
	view *cache.View[[]model.Aggregate],
	q remote.Query,
	fetch func(context.Context) ([]model.Aggregate, error),
) Section {
	sec := Section{Dimension: dim}

	key, err := cache.NewKey(tenant, kind, q)
	if err != nil {
		sec.Err = err
		return sec
	}

	res, err := view.Load(ctx, key, fetch)
	if err != nil {
		if !errors.Is(err, cache.ErrSuperseded) {
			e.log.Warn().Err(err).Str("tenant", tenant).Str("dimension", string(dim)).Msg("aggregate fetch failed")
			err = fmt.Errorf("count tasks by %s: %w", dim, err)
		}
		sec.Err = err
	}
	sec.Items = cloneAggregates(res.Value)
	sec.Stale = res.Stale
	return sec
}

func (e *Engine) label(tenant string, dim model.Dimension, items []model.Aggregate) []model.Aggregate {
	fn, ok := e.labelers[dim]
	if !ok {
		return items
	}
	for i := range items {
		items[i].Label = fn(tenant, items[i])
	}
	return items
}

func (e *Engine) sorted(tenant string, dim model.Dimension, items []model.Aggregate, less Less) []model.Aggregate {
	if items == nil {
		return nil
	}
	items = e.label(tenant, dim, items)
	if less == nil {
		less = e.ByLabel()
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	return items
}

// OrderStatus returns the status buckets in the fixed domain order with
// zeros filled in. A missing "all" bucket is the sum of the others.
func OrderStatus(items []model.Aggregate) []model.Aggregate {
	counts := make(map[string]int, len(items))
	labels := make(map[string]string, len(items))
	for _, a := range items {
		counts[a.Value] = a.Count
		labels[a.Value] = a.Label
	}
	if _, ok := counts[string(model.StatusAll)]; !ok {
		sum := 0
		for _, st := range model.Statuses[1:] {
			sum += counts[string(st)]
		}
		counts[string(model.StatusAll)] = sum
	}

	out := make([]model.Aggregate, 0, len(model.Statuses))
	for _, st := range model.Statuses {
		v := string(st)
		out = append(out, model.Aggregate{Value: v, Label: labels[v], Count: counts[v]})
	}
	return out
}

func cloneAggregates(in []model.Aggregate) []model.Aggregate {
	if in == nil {
		return nil
	}
	out := make([]model.Aggregate, len(in))
	copy(out, in)
	return out
}
