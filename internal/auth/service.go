package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devflow-project/devflow/internal/ids"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 15 * 24 * time.Hour

	minPasswordLength = 8
)

// Service orchestrates registration, login, token refresh and logout.
// Operations are stateless per request; the user and refresh token
// stores are the only shared mutable resources, and every mutation is a
// single-record write delegated to the store.
type Service struct {
	users  UserStore
	tokens RefreshTokenStore
	hasher PasswordHasher
	codec  TokenCodec

	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the session manager with its collaborators.
func NewService(users UserStore, tokens RefreshTokenStore, hasher PasswordHasher, codec TokenCodec, opts ...ServiceOption) (*Service, error) {
	if users == nil || tokens == nil {
		return nil, errors.New("auth: user and refresh token stores are required")
	}
	if hasher == nil {
		return nil, errors.New("auth: password hasher is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	svc := &Service{
		users:      users,
		tokens:     tokens,
		hasher:     hasher,
		codec:      codec,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RefreshTTL exposes the configured refresh token lifetime, which the
// HTTP layer mirrors into the cookie max-age.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// Register creates a user and opens their first session.
func (s *Service) Register(ctx context.Context, email, password, confirmPassword, name string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if password != confirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           ids.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
		}
		return nil, err
	}
	return s.openSession(ctx, user)
}

// Login verifies credentials and opens a session. Unknown email and
// wrong password surface the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) || errors.Is(err, ErrInvalidInput) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return s.openSession(ctx, user)
}

// Refresh exchanges a persisted refresh token for a fresh pair. A token
// that verifies cryptographically but is absent from the store is
// treated as revoked. The superseded token record is left in place:
// concurrent refreshes from multiple devices remain valid until logout
// or natural expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if _, err := s.tokens.Find(ctx, refreshToken); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return s.openSession(ctx, user)
}

// Logout revokes the refresh token. Idempotent: revoking an unknown or
// already-revoked token is not an error. Outstanding access tokens are
// stateless and expire on their own.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	return s.tokens.Delete(ctx, refreshToken)
}

// AuthenticateAccess verifies a bearer access token and returns the
// caller's identity. Access tokens are never looked up in the refresh
// token store; persistence is what distinguishes the two kinds.
func (s *Service) AuthenticateAccess(token string) (Identity, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// openSession runs the shared issuance sequence: sign the same payload
// twice with independent expiries, persist the refresh token, return
// both.
func (s *Service) openSession(ctx context.Context, user *User) (*Session, error) {
	access, accessExp, err := s.codec.Sign(user.ID, user.Email, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.codec.Sign(user.ID, user.Email, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	rec := &RefreshToken{
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: refreshExp,
	}
	if err := s.tokens.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return &Session{
		User: user.Profile(),
		Tokens: TokenPair{
			AccessToken:      access,
			RefreshToken:     refresh,
			AccessExpiresAt:  accessExp,
			RefreshExpiresAt: refreshExp,
		},
	}, nil
}
