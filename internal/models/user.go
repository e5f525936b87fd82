package models

import "time"

// Role is the account role carried in app tokens.
type Role string

const (
	RoleStudent   Role = "student"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Status is the account moderation state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

// User is the directory record. PasswordHash never leaves the service; use
// Public or Profile when building responses.
type User struct {
	ID               int64     `bson:"user_id" json:"user_id"`
	Email            string    `bson:"email" json:"email"`
	Username         string    `bson:"username" json:"username"`
	PasswordHash     string    `bson:"password_hash" json:"-"`
	Role             Role      `bson:"user_role" json:"user_role"`
	Status           Status    `bson:"status" json:"status"`
	Active           bool      `bson:"active" json:"active"`
	ProfilePicture   string    `bson:"profile_picture" json:"profile_picture"`
	GoogleID         string    `bson:"google_id,omitempty" json:"google_id,omitempty"`
	RegistrationDate time.Time `bson:"registration_date" json:"registration_date"`
}

// CanLogin reports whether the account may authenticate.
func (u *User) CanLogin() bool {
	return u.Status == StatusActive && u.Active
}

// PublicUser is the projection returned by the login endpoints.
type PublicUser struct {
	ID             int64  `json:"user_id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	Role           Role   `json:"user_role"`
	ProfilePicture string `json:"profile_picture"`
	GoogleID       string `json:"google_id,omitempty"`
}

// Profile is the projection returned by the profile endpoint.
type Profile struct {
	PublicUser
	Status           Status    `json:"status"`
	RegistrationDate time.Time `json:"registration_date"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		GoogleID:       u.GoogleID,
	}
}

func (u *User) Profile() Profile {
	return Profile{
		PublicUser:       u.Public(),
		Status:           u.Status,
		RegistrationDate: u.RegistrationDate,
	}
}

// FederatedIdentity is what a verified third-party assertion tells us about the
// caller. Name and Picture are optional.
type FederatedIdentity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// FederatedUpdate carries the fields refreshed on every federated login.
type FederatedUpdate struct {
	GoogleID       string
	Username       string
	ProfilePicture string
}
