// Package notify delivers transient notifications to the advisor.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/advisor-tasks/internal/model"
)

// Notifier publishes notifications.
type Notifier interface {
	Publish(n model.Notification)
}

// Subscriber is a callback invoked when a notification is published.
type Subscriber func(model.Notification)

const defaultHistory = 100

// Bus is a synchronous in-process notification bus. It dispatches
// notifications to subscribers inline and keeps a bounded history.
type Bus struct {
	log         zerolog.Logger
	now         func() time.Time
	limit       int
	mu          sync.Mutex
	subscribers []Subscriber
	history     []model.Notification
}

var _ Notifier = (*Bus)(nil)

// NewBus creates a bus that keeps at most limit notifications. A
// non-positive limit uses the default.
func NewBus(log zerolog.Logger, limit int) *Bus {
	if limit <= 0 {
		limit = defaultHistory
	}
	return &Bus{log: log, now: time.Now, limit: limit}
}

// Subscribe registers a callback that will be invoked on every Publish.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// Publish assigns an ID and timestamp, records n and dispatches it.
func (b *Bus) Publish(n model.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = b.now()
	}
	if n.Level == "" {
		n.Level = model.LevelInfo
	}

	ev := b.log.Info()
	if n.Level == model.LevelError {
		ev = b.log.Warn()
	}
	ev.Str("op", n.Op).Str("level", n.Level).Msg(n.Message)

	b.mu.Lock()
	b.history = append(b.history, n)
	if over := len(b.history) - b.limit; over > 0 {
		b.history = append([]model.Notification(nil), b.history[over:]...)
	}
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Errorf publishes an error-level notification for op.
func (b *Bus) Errorf(op, format string, args ...any) {
	b.Publish(model.Notification{Level: model.LevelError, Op: op, Message: fmt.Sprintf(format, args...)})
}

// Infof publishes an info-level notification for op.
func (b *Bus) Infof(op, format string, args ...any) {
	b.Publish(model.Notification{Level: model.LevelInfo, Op: op, Message: fmt.Sprintf(format, args...)})
}

// History returns recorded notifications, oldest first.
func (b *Bus) History() []model.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Notification, len(b.history))
	copy(out, b.history)
	return out
}

// Clear drops the recorded history.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
