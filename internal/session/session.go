// Package session holds the state of the task create/edit dialog and the
// create-category dialog. Both dialogs share nothing with the cache; the
// coherence protocol closes them after a successful submission.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nhle/advisor-tasks/internal/model"
)

var (
	// ErrBusy is returned for a transition the current state does not
	// allow, such as opening a dialog that is already open or submitting
	// twice.
	ErrBusy = errors.New("dialog busy")

	// ErrClosed is returned when the dialog is not open.
	ErrClosed = errors.New("dialog closed")
)

// State is the dialog state.
type State int

const (
	Closed State = iota
	Creating
	Editing
)

func (s State) String() string {
	switch s {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	default:
		return "closed"
	}
}

// Draft is the record edited by the dialog, shared by create and edit.
type Draft struct {
	Title          string
	Content        string
	Category       *string
	ContractNumber string
	Schedule       time.Time
	CustomerID     *string
	CompanyID      *string
	ManagerID      *string
	EntityRelated  *model.EntityRef
}

// Input converts the draft into a store payload.
func (d Draft) Input() model.TaskInput {
	return model.TaskInput{
		Title:          d.Title,
		Content:        d.Content,
		Category:       clonePtr(d.Category),
		ContractNumber: d.ContractNumber,
		Schedule:       d.Schedule,
		CustomerID:     clonePtr(d.CustomerID),
		CompanyID:      clonePtr(d.CompanyID),
		ManagerID:      clonePtr(d.ManagerID),
		EntityRelated:  cloneRef(d.EntityRelated),
	}
}

// Submission is a draft ready to be sent.
type Submission struct {
	Mode   State
	TaskID string
	Input  model.TaskInput
}

// Session is the task create/edit dialog.
type Session struct {
	mu         sync.Mutex
	state      State
	taskID     string
	draft      Draft
	submitting bool
}

// New returns a closed session.
func New() *Session {
	return &Session{}
}

// State returns the state and, when editing, the task id.
func (s *Session) State() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.taskID
}

// OpenCreate enters Creating with a fresh draft scheduled at now.
func (s *Session) OpenCreate(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Closed {
		return ErrBusy
	}
	s.state = Creating
	s.taskID = ""
	s.draft = Draft{Schedule: now}
	return nil
}

// OpenEdit enters Editing and hydrates the draft from t.
func (s *Session) OpenEdit(t model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Closed {
		return ErrBusy
	}
	s.state = Editing
	s.taskID = t.ID
	s.draft = Draft{
		Title:          t.Title,
		Content:        t.Content,
		Category:       clonePtr(t.Category),
		ContractNumber: t.ContractNumber,
		Schedule:       t.Schedule,
		CustomerID:     refID(t.Customer),
		CompanyID:      refID(t.Company),
		ManagerID:      refID(t.Manager),
		EntityRelated:  cloneRef(t.EntityRelated),
	}
	return nil
}

// Close discards the draft. It is a no-op when already closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Session) reset() {
	s.state = Closed
	s.taskID = ""
	s.draft = Draft{}
	s.submitting = false
}

// Draft returns a copy of the draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	d.Category = clonePtr(d.Category)
	d.CustomerID = clonePtr(d.CustomerID)
	d.CompanyID = clonePtr(d.CompanyID)
	d.ManagerID = clonePtr(d.ManagerID)
	d.EntityRelated = cloneRef(d.EntityRelated)
	return d
}

// Edit applies fn to the draft of an open dialog.
func (s *Session) Edit(fn func(*Draft)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return ErrClosed
	}
	fn(&s.draft)
	return nil
}

// Begin starts a submission. ok is false, with no error, when the title is
// empty: the submission is a no-op and the dialog stays as it is.
func (s *Session) Begin() (sub Submission, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == Closed:
		return Submission{}, false, ErrClosed
	case s.submitting:
		return Submission{}, false, ErrBusy
	case strings.TrimSpace(s.draft.Title) == "":
		return Submission{}, false, nil
	}

	s.submitting = true
	return Submission{Mode: s.state, TaskID: s.taskID, Input: s.draft.Input()}, true, nil
}

// End finishes a submission started with Begin. A successful submission
// closes the dialog and clears the draft; a failed one keeps both.
func (s *Session) End(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.reset()
		return
	}
	s.submitting = false
}

func refID(r *model.Ref) *string {
	if r == nil {
		return nil
	}
	id := r.ID
	return &id
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneRef(r *model.EntityRef) *model.EntityRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
