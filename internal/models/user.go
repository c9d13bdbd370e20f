package models

import "time"

// UserRole represents the available account roles. A teacher account keeps
// its student capabilities; the role only widens.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User represents an account row on one regional shard. IDs are per-shard
// serials, so the same numeric ID can exist in every region; a user is only
// globally identified by (location, id).
type User struct {
	ID           int64     `db:"user_id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserInfo describes a user in API responses, tagged with the region the
// account lives on.
type UserInfo struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	Location string   `json:"location"`
}

// Info shapes the user for responses.
func (u *User) Info(location string) UserInfo {
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Location: location}
}
