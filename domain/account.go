package domain

import "time"

// Account is a registered marketplace user as seen by the auth surface.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}
