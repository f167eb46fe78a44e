package domain

import "time"

// TaskStatus enumerates the three workflow states.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "Pending"
	TaskStatusWorking TaskStatus = "Working"
	TaskStatusDone    TaskStatus = "Done"
)

// Valid reports whether s is one of the known states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusWorking, TaskStatusDone:
		return true
	}
	return false
}

// Next returns the following state in the Pending -> Working -> Done cycle.
// Unknown values advance as if they were Pending.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskStatusWorking:
		return TaskStatusDone
	case TaskStatusDone:
		return TaskStatusPending
	default:
		return TaskStatusWorking
	}
}

// MaxTitleLength matches the tasks.title column width.
const MaxTitleLength = 200

// Task is a to-do item owned by exactly one user.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      TaskStatus
	CreatedAt   time.Time
	Deadline    *time.Time
}

// IsOverdue reports whether the deadline is strictly before now.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now)
}

// Bucket groups tasks for listing.
type Bucket int

const (
	BucketUpcoming   Bucket = 0
	BucketNoDeadline Bucket = 1
	BucketOverdue    Bucket = 2
)

func (b Bucket) String() string {
	switch b {
	case BucketUpcoming:
		return "upcoming"
	case BucketNoDeadline:
		return "no_deadline"
	case BucketOverdue:
		return "overdue"
	}
	return "unknown"
}

// BucketFor places a deadline relative to now.
func BucketFor(deadline *time.Time, now time.Time) Bucket {
	switch {
	case deadline == nil:
		return BucketNoDeadline
	case deadline.Before(now):
		return BucketOverdue
	default:
		return BucketUpcoming
	}
}

// ReminderKind classifies a task during a reminder scan.
type ReminderKind string

const (
	ReminderNone     ReminderKind = ""
	ReminderDayAhead ReminderKind = "day_ahead"
	ReminderUrgent   ReminderKind = "urgent"
	ReminderManual   ReminderKind = "manual"
)

// TaskReminder is a task joined with the contact details of its owner.
type TaskReminder struct {
	Task       Task
	OwnerName  string
	OwnerEmail string
}
