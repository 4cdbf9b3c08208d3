package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/fittrack/internal/common"
)

// TokenFromRequest extracts the session token. A bearer token in the
// Authorization header wins over the jwt cookie. It returns "" when neither
// is present.
func TokenFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get(common.AuthorizationHeaderName)); token != "" {
		return token
	}
	if c, err := r.Cookie(common.TokenCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

// SetTokenCookie stores token in an HTTP-only cookie living as long as the token.
func SetTokenCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie overwrites the session cookie with an already expired one.
func ClearTokenCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
