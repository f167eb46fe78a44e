package domain

import "time"

// AccessToken is the metadata of an issued JWT.
type AccessToken struct {
	ID        string
	UserID    string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
