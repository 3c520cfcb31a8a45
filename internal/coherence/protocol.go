// Package coherence applies task and category mutations and invalidates
// the cached views each mutation can affect. It is the only place, apart
// from the refresh window, that invalidates the view cache.
package coherence

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nhle/advisor-tasks/internal/cache"
	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/notify"
	"github.com/nhle/advisor-tasks/internal/remote"
	"github.com/nhle/advisor-tasks/internal/session"
	"github.com/nhle/advisor-tasks/internal/taxonomy"
)

// Mutation names a write operation. The value doubles as the notification
// op name.
type Mutation string

const (
	CreateTask     Mutation = "createTask"
	UpdateTask     Mutation = "updateTask"
	CompleteTask   Mutation = "completeTask"
	CreateCategory Mutation = "createCategory"
)

var taskSummaries = []cache.Kind{
	cache.KindCountStatus, cache.KindCountCategory, cache.KindCountManager,
	cache.KindByType, cache.KindCustomer,
}

// Fences returns the view kinds invalidated after a successful mutation.
// Coarse granularity leaves the aggregate counts to the refresh window;
// strict granularity invalidates them with the list.
func Fences(m Mutation, granularity string) []cache.Kind {
	strict := granularity == model.InvalidationStrict

	switch m {
	case CreateTask:
		kinds := []cache.Kind{cache.KindList}
		if strict {
			kinds = append(kinds, taskSummaries...)
		}
		return kinds
	case UpdateTask:
		kinds := []cache.Kind{cache.KindList, cache.KindDetail}
		if strict {
			kinds = append(kinds, taskSummaries...)
		}
		return kinds
	case CompleteTask:
		kinds := []cache.Kind{cache.KindList}
		if strict {
			kinds = append(kinds, taskSummaries...)
			kinds = append(kinds, cache.KindDetail)
		}
		return kinds
	case CreateCategory:
		kinds := []cache.Kind{cache.KindTaxonomy}
		if strict {
			kinds = append(kinds, cache.KindByType)
		}
		return kinds
	}
	return nil
}

// Outcome describes a submitted dialog.
type Outcome struct {
	// NoOp is set when the draft was not submitted (empty title or name).
	NoOp bool

	Task     *model.Task
	Category *model.Category
}

// Protocol runs mutations against the store and fences the cache.
type Protocol struct {
	store       remote.Store
	categories  *taxonomy.Manager
	cache       *cache.Cache
	notifier    notify.Notifier
	granularity string
	log         zerolog.Logger
}

// New creates a protocol. Categories are created through categories.
// granularity is model.InvalidationCoarse or model.InvalidationStrict.
func New(
	store remote.Store,
	categories *taxonomy.Manager,
	c *cache.Cache,
	notifier notify.Notifier,
	granularity string,
	log zerolog.Logger,
) *Protocol {
	return &Protocol{
		store:       store,
		categories:  categories,
		cache:       c,
		notifier:    notifier,
		granularity: granularity,
		log:         log,
	}
}

// Granularity returns the configured invalidation granularity.
func (p *Protocol) Granularity() string {
	return p.granularity
}

// CreateTask creates a task and fences the list.
func (p *Protocol) CreateTask(ctx context.Context, tenant string, in model.TaskInput) (*model.Task, error) {
	task, err := p.store.CreateTask(ctx, tenant, in)
	if err != nil {
		return nil, p.fail(CreateTask, tenant, fmt.Errorf("create task: %w", err))
	}
	p.fence(CreateTask, tenant)
	return task, nil
}

// UpdateTask updates a task and fences the list and detail views. refetch,
// when set, runs after the fence so a containing view can reload.
func (p *Protocol) UpdateTask(
	ctx context.Context,
	tenant, id string,
	in model.TaskInput,
	refetch func(context.Context),
) (*model.Task, error) {
	task, err := p.store.UpdateTask(ctx, tenant, id, in)
	if err != nil {
		return nil, p.fail(UpdateTask, tenant, fmt.Errorf("update task %s: %w", id, err))
	}
	p.fence(UpdateTask, tenant)
	if refetch != nil {
		refetch(ctx)
	}
	return task, nil
}

// CompleteTask marks a task completed and fences the list.
func (p *Protocol) CompleteTask(ctx context.Context, tenant, id string) (*model.Task, error) {
	task, err := p.store.CompleteTask(ctx, tenant, id)
	if err != nil {
		return nil, p.fail(CompleteTask, tenant, fmt.Errorf("complete task %s: %w", id, err))
	}
	p.fence(CompleteTask, tenant)
	return task, nil
}

// CreateCategory creates a category and fences the taxonomy.
func (p *Protocol) CreateCategory(ctx context.Context, tenant string, in model.CategoryInput) (*model.Category, error) {
	cat, err := p.categories.CreateCategory(ctx, tenant, in)
	if err != nil {
		return nil, p.fail(CreateCategory, tenant, err)
	}
	p.fence(CreateCategory, tenant)
	return cat, nil
}

// SubmitTask submits the task dialog as a create or an update depending on
// its state. Success closes the dialog; failure keeps it open with the
// draft intact.
func (p *Protocol) SubmitTask(
	ctx context.Context,
	tenant string,
	s *session.Session,
	refetch func(context.Context),
) (Outcome, error) {
	sub, ok, err := s.Begin()
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{NoOp: true}, nil
	}

	var task *model.Task
	if sub.Mode == session.Editing {
		task, err = p.UpdateTask(ctx, tenant, sub.TaskID, sub.Input, refetch)
	} else {
		task, err = p.CreateTask(ctx, tenant, sub.Input)
	}
	s.End(err == nil)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Task: task}, nil
}

// SubmitCategory submits the create-category dialog.
func (p *Protocol) SubmitCategory(ctx context.Context, tenant string, d *session.CategoryDialog) (Outcome, error) {
	in, ok, err := d.Begin()
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{NoOp: true}, nil
	}

	cat, err := p.CreateCategory(ctx, tenant, in)
	d.End(err == nil)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Category: cat}, nil
}

// RefreshWindow marks the aggregate views of tenant stale so their next
// load re-fetches.
func (p *Protocol) RefreshWindow(tenant string) int {
	kinds := append(append([]cache.Kind{}, cache.CountKinds...), cache.KindByType)
	return p.cache.Invalidate(tags(tenant, kinds)...)
}

func (p *Protocol) fence(m Mutation, tenant string) {
	kinds := Fences(m, p.granularity)
	n := p.cache.Invalidate(tags(tenant, kinds)...)
	p.log.Debug().
		Str("mutation", string(m)).
		Str("tenant", tenant).
		Int("entries", n).
		Msg("fenced views")
}

// fail reports a failed mutation exactly once and leaves the cache as is.
func (p *Protocol) fail(m Mutation, tenant string, err error) error {
	p.log.Warn().Err(err).Str("mutation", string(m)).Str("tenant", tenant).Msg("mutation failed")
	p.notifier.Publish(model.Notification{
		Level:   model.LevelError,
		Op:      string(m),
		Message: err.Error(),
	})
	return err
}

func tags(tenant string, kinds []cache.Kind) []cache.Tag {
	out := make([]cache.Tag, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, cache.Tag{Tenant: tenant, Kind: k})
	}
	return out
}
