package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSession is returned when a request carries no valid session
var ErrNoSession = errors.New("auth session missing")

// Session is the authenticated caller of a single request. It is acquired by
// middleware at request start and passed explicitly into every service call.
type Session struct {
	UserID    uuid.UUID
	Email     string
	Version   int
	ExpiresAt time.Time
}

// Valid reports whether the session identifies a user and has not expired
func (s Session) Valid(now time.Time) bool {
	return s.UserID != uuid.Nil && now.Before(s.ExpiresAt)
}

type sessionClaims struct {
	Email   string `json:"email"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer using an HMAC secret
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue creates a signed token for the given user
func (t *TokenIssuer) Issue(userID uuid.UUID, email string, version int) (string, Session, error) {
	now := t.now()
	sess := Session{
		UserID:    userID,
		Email:     email,
		Version:   version,
		ExpiresAt: now.Add(t.ttl),
	}

	claims := sessionClaims{
		Email:   email,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, sess, nil
}

// Parse verifies a token and returns the session it carries
func (t *TokenIssuer) Parse(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return Session{}, ErrNoSession
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Session{}, ErrNoSession
	}

	sess := Session{UserID: userID, Email: claims.Email, Version: claims.Version}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

type ctxKey struct{}

// WithSession stores the session in ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
