package events

import (
	"time"

	"github.com/spec-kit/task-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated       EventType = "task_created"
	EventTaskUpdated       EventType = "task_updated"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventTaskDeleted       EventType = "task_deleted"
	EventTasksCleared      EventType = "tasks_cleared"
	EventReminderSent      EventType = "reminder_sent"
)

// AllTypes lists every event type, for subscribers that want them all.
var AllTypes = []EventType{
	EventTaskCreated,
	EventTaskUpdated,
	EventTaskStatusChanged,
	EventTaskDeleted,
	EventTasksCleared,
	EventReminderSent,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	TaskID    string      `json:"task_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	Title    string     `json:"title"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// TaskUpdatedPayload payload.
type TaskUpdatedPayload struct {
	Field string `json:"field"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
}

// TasksClearedPayload payload.
type TasksClearedPayload struct {
	Deleted int64 `json:"deleted"`
}

// ReminderSentPayload payload.
type ReminderSentPayload struct {
	Kind      domain.ReminderKind `json:"kind"`
	Recipient string              `json:"recipient"`
}
