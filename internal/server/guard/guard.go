// Package guard authenticates requests and applies role and ownership
// policies as an ordered pipeline in front of HTTP handlers.
package guard

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/logging"
	"github.com/dmitrijs2005/fittrack/internal/server/auth"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
)

// TokenVerifier checks a session token and returns its subject id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// PrincipalResolver loads the principal for a subject id.
type PrincipalResolver interface {
	Resolve(ctx context.Context, subjectID string) (*models.Principal, error)
}

// ErrorWriter renders a pipeline failure as the HTTP response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

type Guard struct {
	tokens     TokenVerifier
	identities PrincipalResolver
	writeError ErrorWriter
	log        logging.Logger
}

func New(tokens TokenVerifier, identities PrincipalResolver, writeError ErrorWriter, log logging.Logger) *Guard {
	return &Guard{
		tokens:     tokens,
		identities: identities,
		writeError: writeError,
		log:        log.With("module", "guard"),
	}
}

// Authenticate extracts and verifies the request token and resolves its
// principal. A missing token is Unauthenticated.
func (g *Guard) Authenticate(r *http.Request) (*models.Principal, error) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		return nil, common.Plain(common.KindUnauthenticated, common.ErrUnauthenticated.Message)
	}

	subjectID, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	return g.identities.Resolve(r.Context(), subjectID)
}

// Protect authenticates the request, then runs policies in order. The first
// failure is written through the ErrorWriter and the handler is not called.
func (g *Guard) Protect(policies ...Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.Authenticate(r)
			if err != nil {
				g.writeError(w, r, err)
				return
			}
			if err := Evaluate(r, p, policies...); err != nil {
				g.log.Info(r.Context(), "access denied",
					"user_id", p.ID, "role", p.Role.String(), "path", r.URL.Path, "kind", common.KindOf(err).String())
				g.writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// Optional attaches a principal when the request carries a usable token and
// otherwise lets the request through anonymously. It never fails a request.
func (g *Guard) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.TokenFromRequest(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			p, err := g.Authenticate(r)
			if err != nil {
				if common.KindOf(err) == common.KindInternal {
					g.log.Warn(r.Context(), "optional authentication failed", "error", err)
				} else {
					g.log.Debug(r.Context(), "continuing without principal", "kind", common.KindOf(err).String())
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
