package domain

import "time"

// User owns a private list of tasks. Deleting a user deletes the tasks.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
