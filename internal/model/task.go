package model

import "time"

// Ref is a reference to a customer, company, or manager owned by another
// part of the platform. Name is the display label.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// EntityRef points at a related entity (e.g. a document) that a task
// deep-links to.
type EntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Task is a schedulable reminder or action item bound to an advisor.
type Task struct {
	// ID is assigned by the task store and never changes.
	ID string `json:"id"`

	// Tenant scopes the task to one advisory firm.
	Tenant string `json:"tenant"`

	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`

	// Category is a key into the tenant taxonomy. Nil means uncategorized.
	Category *string `json:"category,omitempty"`

	// ContractNumber optionally references an external contract.
	ContractNumber string `json:"contractNumber,omitempty"`

	// Schedule is the due date.
	Schedule time.Time `json:"schedule"`

	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`

	// Completed only ever moves from false to true.
	Completed bool `json:"completed"`

	Customer      *Ref       `json:"customer,omitempty"`
	Company       *Ref       `json:"company,omitempty"`
	Manager       *Ref       `json:"assignedManager,omitempty"`
	EntityRelated *EntityRef `json:"entityRelated,omitempty"`
}

// TaskInput is the payload for creating or updating a task.
type TaskInput struct {
	Title          string    `json:"title"`
	Content        string    `json:"content,omitempty"`
	Category       *string   `json:"category,omitempty"`
	ContractNumber string    `json:"contractNumber,omitempty"`
	Schedule       time.Time `json:"schedule"`
	CustomerID     *string   `json:"customerId,omitempty"`
	CompanyID      *string   `json:"companyId,omitempty"`
	ManagerID      *string   `json:"managerId,omitempty"`

	EntityRelated *EntityRef `json:"entityRelated,omitempty"`
}

// Classification is the derived state of a task at a point in time.
type Classification int

const (
	OnTime Classification = iota
	Late
	Completed
)

func (c Classification) String() string {
	switch c {
	case Late:
		return "late"
	case Completed:
		return "completed"
	default:
		return "on_time"
	}
}

// Status maps a classification onto the status filter dimension.
func (c Classification) Status() Status {
	switch c {
	case Late:
		return StatusLate
	case Completed:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

// Classify is the single definition of lateness: a task is late when it is
// not completed and its schedule lies strictly before now. It is never
// stored; callers pass the clock reading they render against.
func Classify(t Task, now time.Time) Classification {
	if t.Completed {
		return Completed
	}
	if t.Schedule.Before(now) {
		return Late
	}
	return OnTime
}

// IsLate reports whether Classify(t, now) is Late.
func IsLate(t Task, now time.Time) bool {
	return Classify(t, now) == Late
}

// IsUncategorized reports whether the task has no category key.
func (t Task) IsUncategorized() bool {
	return t.Category == nil || *t.Category == ""
}

// ManagerID returns the assigned manager id or "".
func (t Task) ManagerID() string {
	if t.Manager == nil {
		return ""
	}
	return t.Manager.ID
}
