package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]*User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: map[string]*User{}, byEmail: map[string]*User{}}
}

func (s *memUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return ErrConflict
	}
	clone := *u
	s.byID[u.ID] = &clone
	s.byEmail[u.Email] = &clone
	return nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: map[string]*RefreshToken{}}
}

func (s *memTokenStore) Insert(_ context.Context, t *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *t
	s.tokens[t.Token] = &clone
	return nil
}

func (s *memTokenStore) Find(_ context.Context, token string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *memTokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *memTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memUserStore, *memTokenStore) {
	t.Helper()
	codec, err := NewHMACCodec("test-secret")
	require.NoError(t, err)
	users := newMemUserStore()
	tokens := newMemTokenStore()
	svc, err := NewService(users, tokens, NewArgon2Hasher(testArgon2Params), codec, opts...)
	require.NoError(t, err)
	return svc, users, tokens
}

func TestRegisterOpensSession(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "Alice@Example.com", "pw123456", "pw123456", "Alice")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.Equal(t, "Alice", session.User.Name)
	assert.NotEmpty(t, session.User.ID)
	assert.NotEmpty(t, session.Tokens.AccessToken)
	assert.NotEmpty(t, session.Tokens.RefreshToken)
	assert.Equal(t, 1, tokens.count(), "refresh token must be persisted")

	ident, err := svc.AuthenticateAccess(session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, ident.UserID)
	assert.Equal(t, "alice@example.com", ident.Email)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name                              string
		email, password, confirm, display string
	}{
		{"password mismatch", "a@example.com", "pw123456", "pw1234567", "A"},
		{"short password", "a@example.com", "pw1", "pw1", "A"},
		{"bad email", "not-an-email", "pw123456", "pw123456", "A"},
		{"missing name", "a@example.com", "pw123456", "pw123456", "  "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.email, tc.password, tc.confirm, tc.display)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "pw123456", "pw123456", "Alice")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "pw123456", "pw123456", "Alice Again")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginUniformFailure(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "pw123456", "pw123456", "Alice")
	require.NoError(t, err)

	// Unknown email and wrong password must be indistinguishable.
	_, unknownErr := svc.Login(ctx, "bob@example.com", "pw123456")
	_, wrongPassErr := svc.Login(ctx, "alice@example.com", "wrong-password")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongPassErr.Error())
}

func TestLoginSuccess(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice@example.com", "pw123456", "pw123456", "Alice")
	require.NoError(t, err)

	session, err := svc.Login(ctx, "alice@example.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, session.User.ID)

	claims, err := NewHMACCodecMust(t).Verify(session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.Subject)
}

// NewHMACCodecMust builds the codec used across service tests.
func NewHMACCodecMust(t *testing.T) *HMACCodec {
	t.Helper()
	codec, err := NewHMACCodec("test-secret")
	require.NoError(t, err)
	return codec
}

func TestRefreshRotatesWithoutRevokingOld(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice@example.com", "pw123456", "pw123456", "Alice")
	require.NoError(t, err)
	require.Equal(t, 1, tokens.count())

	refreshed, err := svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, refreshed.User.ID)
	assert.NotEqual(t, reg.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	// Multi-device policy: the superseded token stays valid.
	assert.Equal(t, 2, tokens.count())
	_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsUnpersistedToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "pw123456", "pw123456", "Alice")
	require.NoError(t, err)

	// Valid signature and expiry, but never persisted by this server.
	codec := NewHMACCodecMust(t)
	user, err := svc.users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	foreign, _, err := codec.Sign(user.ID, user.Email, time.Hour)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "alice@example.com", "pw123456", "pw123456", "Alice")
	require.NoError(t, err)
	require.Equal(t, 1, tokens.count())

	require.NoError(t, svc.Logout(ctx, session.Tokens.RefreshToken))
	assert.Equal(t, 0, tokens.count())

	// Second logout with the same token changes nothing and is no error.
	require.NoError(t, svc.Logout(ctx, session.Tokens.RefreshToken))
	assert.Equal(t, 0, tokens.count())

	_, err = svc.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredRefreshTokenRejected(t *testing.T) {
	now := time.Now()
	clock := &now
	codec, err := NewHMACCodec("test-secret", WithCodecClock(func() time.Time { return *clock }))
	require.NoError(t, err)

	users := newMemUserStore()
	tokens := newMemTokenStore()
	svc, err := NewService(users, tokens, NewArgon2Hasher(testArgon2Params), codec,
		WithRefreshTTL(time.Hour),
		WithClock(func() time.Time { return *clock }),
	)
	require.NoError(t, err)

	session, err := svc.Register(context.Background(), "alice@example.com", "pw123456", "pw123456", "Alice")
	require.NoError(t, err)

	later := now.Add(2 * time.Hour)
	clock = &later

	_, err = svc.Refresh(context.Background(), session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
