package domain

import "errors"

var (
	ErrEmptyTitle            = errors.New("Task title cannot be empty.")
	ErrInvalidDeadlineFormat = errors.New("Invalid deadline format.")
	ErrPastDeadline          = errors.New("Deadline cannot be in the past.")
	ErrPastDeadlineUpdate    = errors.New("Deadline cannot be set in the past.")
	ErrTitleTooLong          = errors.New("Task title cannot exceed 200 characters.")
	ErrOverdueLocked         = errors.New("Cannot update status of overdue tasks.")
	ErrEmailTaken            = errors.New("Email address already registered. Please log in.")
	ErrInvalidCredentials    = errors.New("Invalid email or password.")
)
