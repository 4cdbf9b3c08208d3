package guard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
)

// Policy is one authorization step. It only ever runs against a resolved
// principal and returns nil to let the request through.
type Policy func(r *http.Request, p *models.Principal) error

// OwnerFunc reports who owns the resource a request targets.
// An empty owner means the owner could not be determined.
type OwnerFunc func(r *http.Request) (string, error)

// Evaluate runs policies in order against p and stops at the first failure.
// A nil principal is rejected before any policy runs.
func Evaluate(r *http.Request, p *models.Principal, policies ...Policy) error {
	if p == nil {
		return common.Plain(common.KindUnauthenticated, common.ErrUnauthenticated.Message)
	}
	for _, policy := range policies {
		if err := policy(r, p); err != nil {
			return err
		}
	}
	return nil
}

// RequireRole lets the request through when the principal holds one of roles.
// An empty role set admits nobody.
func RequireRole(roles ...models.Role) Policy {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(r *http.Request, p *models.Principal) error {
		if _, ok := allowed[p.Role]; !ok {
			return forbidden()
		}
		return nil
	}
}

// RequireOwnershipOrAdmin lets admins through unconditionally and everybody
// else only when owner resolves to their own id. An owner that cannot be
// determined is a rejection.
func RequireOwnershipOrAdmin(owner OwnerFunc) Policy {
	return func(r *http.Request, p *models.Principal) error {
		if p.IsAdmin() {
			return nil
		}
		if owner == nil {
			return forbidden()
		}
		ownerID, err := owner(r)
		if err != nil {
			return err
		}
		if ownerID == "" || ownerID != p.ID {
			return forbidden()
		}
		return nil
	}
}

// URLParam reads the owner id straight from a chi route parameter.
func URLParam(name string) OwnerFunc {
	return func(r *http.Request) (string, error) {
		return chi.URLParam(r, name), nil
	}
}

func forbidden() error {
	return common.Plain(common.KindForbidden, common.ErrForbidden.Message)
}
