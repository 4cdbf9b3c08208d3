// Package auth issues and verifies the signed session tokens that carry a
// user's identity between requests, and moves them on and off the wire.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/fittrack/internal/common"
)

// Claims is the token payload: the standard iat/exp pair plus the subject id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// TokenAuthority signs tokens with HS256 under a single secret that is fixed
// at construction. Verification depends only on the token, the secret and the
// clock, so one instance is shared by all requests.
type TokenAuthority struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a TokenAuthority.
type Option func(*TokenAuthority)

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(a *TokenAuthority) {
		a.now = now
	}
}

// NewTokenAuthority returns an authority issuing tokens valid for ttl.
func NewTokenAuthority(secret []byte, ttl time.Duration, opts ...Option) (*TokenAuthority, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	a := &TokenAuthority{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	return a, nil
}

// TTL is the lifetime given to every issued token.
func (a *TokenAuthority) TTL() time.Duration { return a.ttl }

// Issue signs a token for userID expiring TTL from now.
func (a *TokenAuthority) Issue(userID string) (string, error) {
	if userID == "" {
		return "", common.New(common.KindValidationFailure, "subject id is required")
	}

	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", common.Wrap(common.KindInternal, err, "sign token")
	}
	return tokenString, nil
}

// Verify checks the signature and expiry of tokenString and returns the
// subject id. A token is valid only while now is strictly before exp.
// Failures are common.ErrTokenExpired or common.ErrTokenMalformed kinds.
func (a *TokenAuthority) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := a.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.Wrap(common.KindTokenExpired, err, "%s", common.ErrTokenExpired.Message)
		}
		return "", common.Wrap(common.KindTokenMalformed, err, "%s", common.ErrTokenMalformed.Message)
	}

	if !token.Valid || claims.UserID == "" {
		return "", common.Plain(common.KindTokenMalformed, common.ErrTokenMalformed.Message)
	}

	return claims.UserID, nil
}
