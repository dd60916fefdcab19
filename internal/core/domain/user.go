package domain

import "time"

// User is an identity with a unique username. The password is stored as a
// bcrypt hash (salt embedded). Users own exactly one portfolio.
type User struct {
	UserID       string    `json:"userID"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
