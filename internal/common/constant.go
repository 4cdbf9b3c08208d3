package common

const (
	// AuthorizationHeaderName carries "Bearer <token>" on inbound requests.
	AuthorizationHeaderName = "Authorization"

	// TokenCookieName is the cookie used as a fallback token transport.
	TokenCookieName = "jwt"

	// RequestIDHeaderName is echoed on every response.
	RequestIDHeaderName = "X-Request-ID"
)
