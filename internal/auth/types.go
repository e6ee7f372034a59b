package auth

import "time"

// User is an identity record owned by the credential store. PasswordHash
// is opaque to everything except the hasher and never crosses the HTTP
// boundary: handlers serialize users through Profile.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the outward-facing view of a user.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Profile strips the password hash from the user record.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Name: u.Name}
}

// RefreshToken is one active session. The signed token string is the
// lookup key; deleting the row revokes the session.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair carries the access and refresh tokens issued together.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Session couples a freshly issued token pair with the user it belongs to.
type Session struct {
	User   Profile
	Tokens TokenPair
}

// Identity is an authenticated caller, as resolved from a verified
// access token. It carries no role information: roles are scoped per
// workspace and resolved by the Guard on demand.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
