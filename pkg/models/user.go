package models

// User is a person that can act on nodes and receive tasks.
type User struct {
	Identifier string `json:"identifier" mapstructure:"identifier" validate:"required"`
	Email      string `json:"email"      mapstructure:"email"      validate:"omitempty,email"`
	Fullname   string `json:"fullname"   mapstructure:"fullname"`
}

// UserSnapshot is the copy of a user stored in history documents.
type UserSnapshot struct {
	Identifier string `json:"identifier"`
	Fullname   string `json:"fullname"`
	Email      string `json:"email,omitempty"`
}

func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{Identifier: u.Identifier, Fullname: u.Fullname, Email: u.Email}
}
