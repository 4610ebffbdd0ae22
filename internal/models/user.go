package models

import "time"

// Principal roles. These are three distinct capability sets, not a hierarchy:
// an admin cannot create requests and a manager cannot approve them.
const (
	RoleUser    = "USER"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

// IsValidRole returns true for a known principal role
func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User represents an authenticated principal
type User struct {
	ID           string    `json:"id"`
	ArmyNumber   string    `json:"armyNumber"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary is the reduced projection of a user embedded in request listings
// and roster views.
type UserSummary struct {
	ID         string `json:"id"`
	ArmyNumber string `json:"armyNumber,omitempty"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

// Summary returns the listing projection of the user
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		ArmyNumber: u.ArmyNumber,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
	}
}
