package auth

import "errors"

var (
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrConflict     = errors.New("auth: already exists")
	ErrNotFound     = errors.New("auth: not found")
	ErrForbidden    = errors.New("auth: forbidden")

	// ErrInvalidCredentials is returned for every login failure, whether
	// the email was unknown or the password wrong, so callers cannot
	// enumerate registered accounts.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken covers malformed, tampered, expired and revoked
	// tokens alike.
	ErrInvalidToken = errors.New("auth: invalid token")
)
