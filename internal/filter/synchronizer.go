// Package filter binds the task filter to a navigable location. Every
// change is written to the location and read back from it; the
// synchronizer never keeps a filter of its own.
package filter

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/nhle/advisor-tasks/internal/model"
)

// Synchronizer reads and writes the filter through a Location.
type Synchronizer struct {
	Codec
	loc Location
	log zerolog.Logger
}

// NewSynchronizer binds a synchronizer to loc.
func NewSynchronizer(loc Location, cfg model.FilterConfig, log zerolog.Logger) *Synchronizer {
	return &Synchronizer{Codec: NewCodec(cfg), loc: loc, log: log}
}

// Current parses the location. A malformed location is logged and read as
// the default filter.
func (s *Synchronizer) Current() model.Filter {
	return s.read(s.loc.Query())
}

func (s *Synchronizer) read(v url.Values, qerr error) model.Filter {
	f, err := s.Parse(v)
	if qerr != nil {
		f, err = s.Defaults(), &ValidationError{Query: v.Encode(), Err: qerr}
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("falling back to default filter")
	}
	return f
}

// IsDefaultView reports whether the current filter is the default view.
func (s *Synchronizer) IsDefaultView() bool {
	return s.IsDefault(s.Current())
}

// OnChange registers fn for every location change, including back and
// forward navigation. The returned func unsubscribes.
func (s *Synchronizer) OnChange(fn func(model.Filter)) func() {
	return s.loc.Subscribe(func(v url.Values, err error) {
		fn(s.read(v, err))
	})
}

// SelectStatus toggles the status dimension. Selecting the current status
// clears it back to all.
func (s *Synchronizer) SelectStatus(status model.Status) error {
	if !status.Valid() {
		return &ValidationError{Query: KeyStatus + "=" + string(status), Err: fmt.Errorf("unknown status %q", status)}
	}
	s.update(func(f *model.Filter) {
		if f.Status == status {
			f.Status = s.defaults.Status
		} else {
			f.Status = status
		}
	})
	return nil
}

// SelectCategory toggles the category dimension. The empty key selects
// uncategorized tasks.
func (s *Synchronizer) SelectCategory(key string) {
	s.update(func(f *model.Filter) { f.Category = toggle(f.Category, key) })
}

// SelectManager toggles the manager dimension.
func (s *Synchronizer) SelectManager(id string) {
	s.update(func(f *model.Filter) { f.Manager = toggle(f.Manager, id) })
}

// SetContractNumber filters by contract number; "" clears it.
func (s *Synchronizer) SetContractNumber(number string) {
	s.update(func(f *model.Filter) {
		if number == "" {
			f.ContractNumber = nil
		} else {
			f.ContractNumber = &number
		}
	})
}

// SelectTask opens id in the detail pane; "" closes it. Pagination is
// preserved.
func (s *Synchronizer) SelectTask(id string) {
	f := s.Current()
	if id == "" {
		f.ID = nil
	} else {
		f.ID = &id
	}
	s.loc.Push(s.Serialize(f))
}

// SetPage moves to page n.
func (s *Synchronizer) SetPage(n int) error {
	if n < 1 {
		return &ValidationError{Query: fmt.Sprintf("%s=%d", KeyPage, n), Err: fmt.Errorf("must be at least 1")}
	}
	f := s.Current()
	f.Page = n
	s.loc.Push(s.Serialize(f))
	return nil
}

// SetTake changes the page size and returns to the first page.
func (s *Synchronizer) SetTake(n int) error {
	if n < 1 || n > s.maxTake {
		return &ValidationError{Query: fmt.Sprintf("%s=%d", KeyTake, n), Err: fmt.Errorf("must be between 1 and %d", s.maxTake)}
	}
	s.update(func(f *model.Filter) { f.Take = n })
	return nil
}

// Reset navigates to the default view.
func (s *Synchronizer) Reset() {
	s.loc.Push(s.Serialize(s.Defaults()))
}

// update applies a filter change and resets to the first page.
func (s *Synchronizer) update(fn func(*model.Filter)) {
	f := s.Current()
	fn(&f)
	f.Page = 1
	s.loc.Push(s.Serialize(f))
}

func toggle(cur *string, v string) *string {
	if cur != nil && *cur == v {
		return nil
	}
	return &v
}
