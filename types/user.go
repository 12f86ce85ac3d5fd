package types

import "time"

// UserType distinguishes parents from specialists.
type UserType string

const (
	UserTypeNormal UserType = "normal"
	UserTypeDoctor UserType = "doctor"
)

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool {
	return t == UserTypeNormal || t == UserTypeDoctor
}

// Gender of a registered child.
type Gender string

const (
	GenderBoy  Gender = "boy"
	GenderGirl Gender = "girl"
)

// Child describes one child of a parent account.
type Child struct {
	// Age is free text as entered by the parent (e.g. "4", "18 months").
	Age string `json:"age" validate:"required,max=32"`

	// Gender is either "boy" or "girl".
	Gender Gender `json:"gender" validate:"oneof=boy girl"`
}

// User is a stored profile for either a parent ("normal") or a
// specialist ("doctor").
type User struct {
	// ID is the unique identifier of the user, assigned at registration.
	ID string `json:"id"`

	// Type is the account kind and never changes after registration.
	Type UserType `json:"type"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username"`

	// Children is only set for parent accounts.
	Children []Child `json:"children,omitempty"`

	// Email, University and Field are only set for doctor accounts.
	Email      string `json:"email,omitempty"`
	University string `json:"university,omitempty"`
	Field      string `json:"field,omitempty"`

	// Avatar is an optional image URL shown next to the user's content.
	Avatar string `json:"avatar,omitempty"`

	// CreatedAt is set once at registration.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp of the most recent profile change.
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsDoctor reports whether the user is a specialist account.
func (u User) IsDoctor() bool {
	return u.Type == UserTypeDoctor
}
