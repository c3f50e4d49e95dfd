package models

import "time"

// User is the stored identity. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserUpdate carries the fields to change; nil means keep.
type UserUpdate struct {
	Email        *string
	Username     *string
	PasswordHash *string
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Username == nil && u.PasswordHash == nil
}

// UserPage is one page of users plus the total count across all pages.
type UserPage struct {
	Users []*User
	Total int64
}
