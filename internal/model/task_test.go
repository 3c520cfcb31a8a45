package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task Task
		want Classification
	}{
		{"future schedule", Task{Schedule: now.Add(time.Hour)}, OnTime},
		{"schedule equal to now", Task{Schedule: now}, OnTime},
		{"past schedule", Task{Schedule: now.Add(-time.Second)}, Late},
		{"completed past schedule", Task{Schedule: now.Add(-time.Hour), Completed: true}, Completed},
		{"completed future schedule", Task{Schedule: now.Add(time.Hour), Completed: true}, Completed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.task, now))
			assert.Equal(t, tt.want == Late, IsLate(tt.task, now))
		})
	}
}

func TestClassify_MonotonicInTime(t *testing.T) {
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	task := Task{Schedule: due}

	// Once late, a task stays late as the clock advances.
	wasLate := false
	for offset := -3 * time.Hour; offset <= 3*time.Hour; offset += 30 * time.Minute {
		late := IsLate(task, due.Add(offset))
		if wasLate {
			assert.True(t, late, "offset %s", offset)
		}
		wasLate = late
	}
	assert.False(t, IsLate(task, due))
	assert.True(t, IsLate(task, due.Add(time.Nanosecond)))
}

func TestClassification_Status(t *testing.T) {
	assert.Equal(t, StatusInProgress, OnTime.Status())
	assert.Equal(t, StatusLate, Late.Status())
	assert.Equal(t, StatusCompleted, Completed.Status())
}

func TestTask_IsUncategorized(t *testing.T) {
	assert.True(t, Task{}.IsUncategorized())
	assert.True(t, Task{Category: Ptr("")}.IsUncategorized())
	assert.False(t, Task{Category: Ptr("a")}.IsUncategorized())
}
