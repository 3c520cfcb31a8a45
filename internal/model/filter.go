package model

// Status is the status dimension of the task filter.
type Status string

const (
	StatusAll        Status = "all"
	StatusInProgress Status = "in_progress"
	StatusLate       Status = "late"
	StatusCompleted  Status = "completed"
)

// Statuses is the fixed domain order of the status dimension.
var Statuses = []Status{StatusAll, StatusInProgress, StatusLate, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Filter is the externally addressable set of dimensions that selects the
// task subset and the task shown in the detail pane.
type Filter struct {
	Status Status

	// Category nil means any category; a pointer to "" selects
	// uncategorized tasks only.
	Category       *string
	Manager        *string
	ContractNumber *string

	// ID selects the task in the detail pane.
	ID *string

	Page int
	Take int
}

// DefaultFilter returns the filter of the "All tasks" view.
func DefaultFilter(take int) Filter {
	return Filter{Status: StatusAll, Page: 1, Take: take}
}

// WithoutPagination returns a copy with page and take zeroed. Pagination is
// not part of filter identity.
func (f Filter) WithoutPagination() Filter {
	f.Page = 0
	f.Take = 0
	return f
}

// Equal compares two filters field by field, including pagination.
func (f Filter) Equal(o Filter) bool {
	return f.Status == o.Status &&
		eqPtr(f.Category, o.Category) &&
		eqPtr(f.Manager, o.Manager) &&
		eqPtr(f.ContractNumber, o.ContractNumber) &&
		eqPtr(f.ID, o.ID) &&
		f.Page == o.Page &&
		f.Take == o.Take
}

// Clone returns a deep copy so pointer fields are not shared.
func (f Filter) Clone() Filter {
	f.Category = clonePtr(f.Category)
	f.Manager = clonePtr(f.Manager)
	f.ContractNumber = clonePtr(f.ContractNumber)
	f.ID = clonePtr(f.ID)
	return f
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

func eqPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
