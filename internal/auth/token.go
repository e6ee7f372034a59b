package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload carried by both access and refresh tokens.
// The two kinds share one shape and one signing key; what makes a
// refresh token a refresh token is its server-side persistence, not
// anything cryptographic.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies compact expiring tokens.
type TokenCodec interface {
	Sign(userID, email string, ttl time.Duration) (token string, expiresAt time.Time, err error)
	Verify(token string) (*Claims, error)
}

// HMACCodec is a TokenCodec over HS256 JWTs with a shared secret.
type HMACCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// CodecOption configures HMACCodec.
type CodecOption func(*HMACCodec)

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *HMACCodec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// WithCodecIssuer overrides the issuer claim.
func WithCodecIssuer(issuer string) CodecOption {
	return func(c *HMACCodec) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			c.issuer = issuer
		}
	}
}

// NewHMACCodec constructs a codec keyed by the given shared secret.
// The secret is process-wide configuration injected at startup, never
// read from ambient state.
func NewHMACCodec(secret string, opts ...CodecOption) (*HMACCodec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret is required", ErrInvalidInput)
	}
	c := &HMACCodec{
		secret: []byte(secret),
		issuer: "devflow",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HMACCodec) Sign(userID, email string, ttl time.Duration) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: ttl must be greater than zero", ErrInvalidInput)
	}
	now := c.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer and expiry. Expired tokens are
// rejected outright; there is no grace window.
func (c *HMACCodec) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
