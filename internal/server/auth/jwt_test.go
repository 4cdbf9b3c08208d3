package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/fittrack/internal/common"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newAuthority(t *testing.T, secret string, ttl time.Duration, clock *fakeClock) *TokenAuthority {
	t.Helper()
	a, err := NewTokenAuthority([]byte(secret), ttl, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenAuthority error: %v", err)
	}
	return a
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	a := newAuthority(t, "super-secret", time.Hour, clock)

	tok, err := a.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	got, err := a.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if got != "user-123" {
		t.Fatalf("userID mismatch: got %q want %q", got, "user-123")
	}
}

func TestIssue_ClaimsCarryIDAndTimes(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	a := newAuthority(t, "super-secret", 24*time.Hour, clock)

	tok, err := a.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		t.Fatalf("ParseUnverified error: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("id claim: got %q", claims.UserID)
	}
	if !claims.IssuedAt.Time.Equal(t0) {
		t.Fatalf("iat: got %v want %v", claims.IssuedAt.Time, t0)
	}
	if !claims.ExpiresAt.Time.Equal(t0.Add(a.TTL())) {
		t.Fatalf("exp: got %v want %v", claims.ExpiresAt.Time, t0.Add(a.TTL()))
	}
	if a.TTL() != 24*time.Hour {
		t.Fatalf("TTL: got %v", a.TTL())
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	a := newAuthority(t, "secret", time.Hour, clock)

	tok, err := a.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	clock.now = t0.Add(time.Hour - time.Second)
	if _, err := a.Verify(tok); err != nil {
		t.Fatalf("token must still be valid one second before exp: %v", err)
	}

	clock.now = t0.Add(time.Hour)
	_, err = a.Verify(tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exp, got %v", err)
	}

	clock.now = t0.Add(48 * time.Hour)
	_, err = a.Verify(tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after exp, got %v", err)
	}
}

func TestVerify_ExpiredBeatsUnknownUser(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	a := newAuthority(t, "secret", time.Minute, clock)

	tok, err := a.Issue("deleted-user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	clock.now = t0.Add(2 * time.Minute)

	_, err = a.Verify(tok)
	if common.KindOf(err) != common.KindTokenExpired {
		t.Fatalf("expected TokenExpired kind, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	issuer := newAuthority(t, "right-secret", time.Hour, clock)
	verifier := newAuthority(t, "wrong-secret", time.Hour, clock)

	tok, err := issuer.Issue("u2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = verifier.Verify(tok)
	if !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for invalid signature, got %v", err)
	}
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	a := newAuthority(t, "k", time.Hour, &fakeClock{now: t0})

	for _, tok := range []string{"", "not.a.jwt", "abc", "a.b.c.d"} {
		if _, err := a.Verify(tok); !errors.Is(err, common.ErrTokenMalformed) {
			t.Fatalf("%q: expected ErrTokenMalformed, got %v", tok, err)
		}
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	a := newAuthority(t, "secret", time.Hour, clock)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour))},
		UserID:           "u1",
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := a.Verify(hs512); !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("HS512: expected ErrTokenMalformed, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := a.Verify(none); !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("none: expected ErrTokenMalformed, got %v", err)
	}
}

func TestVerify_RequiredClaims(t *testing.T) {
	t.Parallel()

	a := newAuthority(t, "secret", time.Hour, &fakeClock{now: t0})

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := a.Verify(noExp); !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("missing exp: expected ErrTokenMalformed, got %v", err)
	}

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour))},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := a.Verify(noID); !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("missing id: expected ErrTokenMalformed, got %v", err)
	}
}

func TestNewTokenAuthority_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenAuthority(nil, time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewTokenAuthority([]byte("s"), 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestIssue_EmptySubject(t *testing.T) {
	t.Parallel()

	a := newAuthority(t, "s", time.Hour, &fakeClock{now: t0})
	if _, err := a.Issue(""); common.KindOf(err) != common.KindValidationFailure {
		t.Fatalf("expected ValidationFailure, got %v", err)
	}
}
