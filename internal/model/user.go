// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account plus its display attributes.
//
// Email/password is the primary login flow, so Email is unique in the
// database (among non-empty addresses — GitHub accounts may hide theirs)
// and PasswordHash holds the bcrypt hash (never the plaintext, and never
// serialized — note the `json:"-"`).
//
// GitHubID is only set for accounts created through the optional GitHub
// OAuth flow. Zero means "no linked GitHub account"; the sparse UNIQUE
// index on github_id keeps one GitHub account mapped to one app account.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Name         string    `json:"name"      db:"name"`
	Age          int       `json:"age"       db:"age"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     int64     `json:"-"         db:"github_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
