package auth

import "context"

// UserStore is the credential store boundary. Implementations map
// storage-level failures onto the package sentinels: Create reports
// ErrConflict on a duplicate email, lookups report ErrNotFound.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
}

// RefreshTokenStore persists issued refresh tokens keyed by the raw
// token string. Delete is a no-op when the token is absent.
type RefreshTokenStore interface {
	Insert(ctx context.Context, t *RefreshToken) error
	Find(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error
}

// MemberResolver looks up a caller's membership within a workspace.
// Resolve reports ErrInvalidInput when either id is empty and
// ErrNotFound when no membership exists.
type MemberResolver interface {
	Resolve(ctx context.Context, userID, workspaceID string) (*Membership, error)
}
