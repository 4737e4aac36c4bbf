package domain

import "time"

// User is a registered account. The password credential is an opaque hash.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
