package model

import "time"

// Notification levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Notification is a transient message surfaced to the advisor, used for
// remote failures and mutation outcomes.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// Level is LevelInfo or LevelError.
	Level string `json:"level"`

	// Op names the operation that produced the notification
	// (e.g. "completeTask", "list").
	Op string `json:"op"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
