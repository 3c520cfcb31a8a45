// Package engine wires the filter, taxonomy, aggregation, cache and
// coherence components into the task management engine of one tenant.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/advisor-tasks/internal/aggregate"
	"github.com/nhle/advisor-tasks/internal/cache"
	"github.com/nhle/advisor-tasks/internal/coherence"
	"github.com/nhle/advisor-tasks/internal/filter"
	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/notify"
	"github.com/nhle/advisor-tasks/internal/remote"
	"github.com/nhle/advisor-tasks/internal/session"
	"github.com/nhle/advisor-tasks/internal/taxonomy"
)

// Read operation names used in notifications.
const (
	OpList       = "list"
	OpDetail     = "detail"
	OpCounts     = "counts"
	OpCategories = "categories"
	OpCustomer   = "customerTasks"
	OpByType     = "taskTypes"
	OpExport     = "export"
)

// Row is a task of the list with its derived classification.
type Row struct {
	Task           model.Task
	Classification model.Classification
	CategoryLabel  string

	// Defaulted is set when an uncategorized task is shown under the
	// tenant's default category.
	Defaulted bool
}

// Page is one page of the task list.
type Page struct {
	Count int
	Rows  []Row

	// Stale is set when the rows are last-known-good data.
	Stale bool
}

// SubmitResult is the outcome of a dialog submission.
type SubmitResult = coherence.Outcome

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock tasks are classified against.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCatalog sets the label catalog.
func WithCatalog(c *taxonomy.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithCache shares a view cache between engines.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// Engine is the task management engine of one tenant.
type Engine struct {
	tenant   string
	locale   string
	store    remote.Store
	notifier notify.Notifier
	now      func() time.Time
	log      zerolog.Logger

	cache      *cache.Cache
	catalog    *taxonomy.Catalog
	filters    *filter.Synchronizer
	taxonomy   *taxonomy.Manager
	aggregates *aggregate.Engine
	protocol   *coherence.Protocol

	dialog         *session.Session
	categoryDialog *session.CategoryDialog

	list       *cache.View[*remote.SearchResult]
	detail     *cache.View[*model.Task]
	categories *cache.View[[]model.Category]
	customer   *cache.View[[]model.Task]
	byType     *cache.View[*remote.TypeBreakdown]

	mu           sync.Mutex
	lastTaxonomy []model.Category
}

// New creates the engine of cfg.Tenant. The filter is read from and
// written to loc.
func New(
	cfg model.AppConfig,
	store remote.Store,
	loc filter.Location,
	notifier notify.Notifier,
	log zerolog.Logger,
	opts ...Option,
) (*Engine, error) {
	e := &Engine{
		tenant:   cfg.Tenant,
		locale:   cfg.Locale,
		store:    store,
		notifier: notifier,
		now:      time.Now,
		log:      log.With().Str("tenant", cfg.Tenant).Logger(),
		catalog:  taxonomy.DefaultCatalog(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cache == nil {
		c, err := cache.New(cfg.Cache.Size, e.log)
		if err != nil {
			return nil, fmt.Errorf("create view cache: %w", err)
		}
		e.cache = c
	}

	e.filters = filter.NewSynchronizer(loc, cfg.Filters, e.log)
	e.taxonomy = taxonomy.NewManager(store, e.log)
	e.aggregates = aggregate.NewEngine(store, e.cache, cfg.Locale, e.log)
	e.aggregates.SetLabeler(model.DimensionCategory, e.bucketLabel)
	e.protocol = coherence.New(store, e.taxonomy, e.cache, notifier, cfg.Cache.Invalidation, e.log)
	e.dialog = session.New()
	e.categoryDialog = session.NewCategoryDialog()

	e.list = cache.NewView[*remote.SearchResult](e.cache)
	e.detail = cache.NewView[*model.Task](e.cache)
	e.categories = cache.NewView[[]model.Category](e.cache)
	e.customer = cache.NewView[[]model.Task](e.cache)
	e.byType = cache.NewView[*remote.TypeBreakdown](e.cache)

	return e, nil
}

// Tenant returns the tenant of the engine.
func (e *Engine) Tenant() string { return e.tenant }

// Protocol returns the coherence protocol, used by the refresh poller.
func (e *Engine) Protocol() *coherence.Protocol { return e.protocol }

// Filters returns the filter synchronizer.
func (e *Engine) Filters() *filter.Synchronizer { return e.filters }

// Filter returns the current filter.
func (e *Engine) Filter() model.Filter { return e.filters.Current() }

// IsDefaultView reports whether the "All tasks" view is active.
func (e *Engine) IsDefaultView() bool { return e.filters.IsDefaultView() }

// Tasks loads the current page of the task list.
func (e *Engine) Tasks(ctx context.Context) (Page, error) {
	q := remote.ListQuery(e.Filter())
	key, err := cache.NewKey(e.tenant, cache.KindList, q)
	if err != nil {
		return Page{}, err
	}

	res, err := e.list.Load(ctx, key, func(ctx context.Context) (*remote.SearchResult, error) {
		return e.store.CompanyTaskSearch(ctx, e.tenant, q)
	})
	if err != nil {
		err = e.readFailed(OpList, err)
	}
	if res.Value == nil {
		return Page{}, err
	}

	cats := e.knownCategories()
	now := e.now()
	page := Page{Count: res.Value.Count, Stale: res.Stale, Rows: make([]Row, 0, len(res.Value.Tasks))}
	for _, t := range res.Value.Tasks {
		page.Rows = append(page.Rows, e.row(t, now, cats))
	}
	return page, err
}

// Detail loads the task selected in the detail pane. It returns nil when no
// task is selected or the task no longer exists.
func (e *Engine) Detail(ctx context.Context) (*model.Task, error) {
	f := e.Filter()
	if f.ID == nil {
		return nil, nil
	}
	return e.fetchDetail(ctx, *f.ID)
}

func (e *Engine) fetchDetail(ctx context.Context, id string) (*model.Task, error) {
	key, err := cache.NewKey(e.tenant, cache.KindDetail, id)
	if err != nil {
		return nil, err
	}

	res, err := e.detail.Load(ctx, key, func(ctx context.Context) (*model.Task, error) {
		return e.store.FetchSingleTask(ctx, e.tenant, id)
	})
	if remote.IsNotFound(err) {
		e.log.Debug().Str("task", id).Msg("selected task not found")
		return nil, nil
	}
	if err != nil {
		return res.Value, e.readFailed(OpDetail, err)
	}
	return res.Value, nil
}

// Counts loads the three aggregate dimensions of the current filter.
// Failed sections are reported once each and keep last-known-good items.
func (e *Engine) Counts(ctx context.Context) aggregate.Snapshot {
	snap := e.aggregates.Snapshot(ctx, e.tenant, e.Filter())
	for _, sec := range []*aggregate.Section{&snap.Status, &snap.Categories, &snap.Managers} {
		if sec.Err != nil {
			sec.Err = e.readFailed(OpCounts, sec.Err)
		}
	}
	return snap
}

// Categories loads the tenant taxonomy. An unknown tenant is returned as
// an error satisfying remote.IsNotFound.
func (e *Engine) Categories(ctx context.Context) ([]model.Category, error) {
	key, err := cache.NewKey(e.tenant, cache.KindTaxonomy, e.tenant)
	if err != nil {
		return nil, err
	}

	res, err := e.categories.Load(ctx, key, func(ctx context.Context) ([]model.Category, error) {
		return e.taxonomy.ListCategories(ctx, e.tenant)
	})
	if err != nil {
		return res.Value, e.readFailed(OpCategories, err)
	}

	e.mu.Lock()
	e.lastTaxonomy = res.Value
	e.mu.Unlock()
	return res.Value, nil
}

// CategoryLabel renders a category key. The empty key renders as the
// localized "no category" label.
func (e *Engine) CategoryLabel(key string) string {
	return e.catalog.LabelFor(e.tenant, key, e.knownCategories(), e.locale)
}

// CustomerTasks loads every task of a customer.
func (e *Engine) CustomerTasks(ctx context.Context, customerID string) ([]Row, error) {
	key, err := cache.NewKey(e.tenant, cache.KindCustomer, customerID)
	if err != nil {
		return nil, err
	}

	res, err := e.customer.Load(ctx, key, func(ctx context.Context) ([]model.Task, error) {
		return e.store.ListCustomerTasks(ctx, e.tenant, customerID)
	})
	if err != nil {
		err = e.readFailed(OpCustomer, err)
	}

	cats := e.knownCategories()
	now := e.now()
	rows := make([]Row, 0, len(res.Value))
	for _, t := range res.Value {
		rows = append(rows, e.row(t, now, cats))
	}
	return rows, err
}

// TaskTypes loads the category and manager breakdown of the current filter.
func (e *Engine) TaskTypes(ctx context.Context) (*remote.TypeBreakdown, error) {
	q := remote.ListQuery(e.Filter().WithoutPagination())
	key, err := cache.NewKey(e.tenant, cache.KindByType, q)
	if err != nil {
		return nil, err
	}

	res, err := e.byType.Load(ctx, key, func(ctx context.Context) (*remote.TypeBreakdown, error) {
		return e.store.ListCompanyTaskByType(ctx, e.tenant, q)
	})
	if err != nil {
		return res.Value, e.readFailed(OpByType, err)
	}
	return res.Value, nil
}

// Export requests a CSV export of the tenant, or of one customer, and
// returns its download URL.
func (e *Engine) Export(ctx context.Context, customerID *string) (string, error) {
	url, err := e.store.ExportTasks(ctx, e.tenant, customerID)
	if err != nil {
		return "", e.readFailed(OpExport, fmt.Errorf("export tasks: %w", err))
	}
	return url, nil
}

// Warm reloads the views covered by the refresh window.
func (e *Engine) Warm(ctx context.Context, _ string) error {
	snap := e.aggregates.Snapshot(ctx, e.tenant, e.Filter())
	_, err := e.TaskTypes(ctx)
	return errors.Join(snap.Status.Err, snap.Categories.Err, snap.Managers.Err, err)
}

func (e *Engine) row(t model.Task, now time.Time, cats []model.Category) Row {
	key := ""
	cat, ok := taxonomy.Fallback(t, cats)
	if ok {
		key = cat.Key
	}
	return Row{
		Task:           t,
		Classification: model.Classify(t, now),
		CategoryLabel:  e.catalog.LabelFor(e.tenant, key, cats, e.locale),
		Defaulted:      ok && t.Category == nil,
	}
}

// TaskCategoryLabel renders the category shown for t, falling back to the
// tenant's default category for an uncategorized task.
func (e *Engine) TaskCategoryLabel(t model.Task) string {
	return e.row(t, e.now(), e.knownCategories()).CategoryLabel
}

func (e *Engine) bucketLabel(tenant string, a model.Aggregate) string {
	if a.Value == "" {
		return e.catalog.LabelFor(tenant, "", nil, e.locale)
	}
	return e.catalog.DisplayName(model.Category{Key: a.Value, Name: a.Label}, e.locale)
}

func (e *Engine) knownCategories() []model.Category {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastTaxonomy
}

// readFailed reports a failed read once. Superseded responses are not
// failures and pass through silently.
func (e *Engine) readFailed(op string, err error) error {
	if errors.Is(err, cache.ErrSuperseded) {
		return err
	}
	e.log.Warn().Err(err).Str("op", op).Msg("read failed")
	e.notifier.Publish(model.Notification{
		Level:   model.LevelError,
		Op:      op,
		Message: err.Error(),
	})
	return err
}
