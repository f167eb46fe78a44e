package dto

import (
	"time"

	"github.com/spec-kit/task-tracker/internal/display"
	"github.com/spec-kit/task-tracker/internal/domain"
)

// AddTaskRequest is the add-task form.
type AddTaskRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Deadline    string `json:"deadline" form:"deadline"`
}

// UpdateDescriptionRequest replaces a task description.
type UpdateDescriptionRequest struct {
	NewDescription string `json:"new_description" form:"new_description"`
}

// UpdateDeadlineRequest sets or clears a deadline; blank clears.
type UpdateDeadlineRequest struct {
	NewDeadline string `json:"new_deadline" form:"new_deadline"`
}

// TaskView is a task rendered for the client in the display zone.
type TaskView struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Status            domain.TaskStatus `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	CreatedAtTime     string            `json:"created_at_time"`
	CreatedAtDate     string            `json:"created_at_date"`
	Deadline          *time.Time        `json:"deadline"`
	DeadlineTime      string            `json:"deadline_time"`
	DeadlineDate      string            `json:"deadline_date"`
	DeadlineFormValue string            `json:"deadline_form_value"`
	Bucket            string            `json:"bucket"`
	Overdue           bool              `json:"overdue"`
}

// NewTaskView renders task as seen at now.
func NewTaskView(task domain.Task, now time.Time, f display.Formatter) TaskView {
	return TaskView{
		ID:                task.ID,
		Title:             task.Title,
		Description:       task.Description,
		Status:            task.Status,
		CreatedAt:         task.CreatedAt,
		CreatedAtTime:     f.Time(task.CreatedAt),
		CreatedAtDate:     f.Date(task.CreatedAt),
		Deadline:          task.Deadline,
		DeadlineTime:      f.OptionalTime(task.Deadline),
		DeadlineDate:      f.OptionalDate(task.Deadline),
		DeadlineFormValue: f.OptionalFormValue(task.Deadline),
		Bucket:            domain.BucketFor(task.Deadline, now).String(),
		Overdue:           task.IsOverdue(now),
	}
}

// NewTaskViews renders tasks keeping their order.
func NewTaskViews(tasks []domain.Task, now time.Time, f display.Formatter) []TaskView {
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, NewTaskView(task, now, f))
	}
	return views
}
