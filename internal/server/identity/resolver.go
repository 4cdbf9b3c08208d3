// Package identity turns a verified token subject into the request Principal.
package identity

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/logging"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
)

// PrincipalStore is the lookup the resolver needs from storage.
// users.Repository satisfies it.
type PrincipalStore interface {
	GetPrincipalByID(ctx context.Context, id string) (*models.Principal, error)
}

// Resolver loads the principal for every request. Nothing is cached, so a
// deleted or deactivated account loses access on its next request.
type Resolver struct {
	store PrincipalStore
	log   logging.Logger
}

func NewResolver(store PrincipalStore, log logging.Logger) *Resolver {
	return &Resolver{store: store, log: log.With("module", "identity")}
}

// Resolve returns the principal for subjectID. A missing or inactive account
// is Unauthenticated; any storage failure is Internal and is not retried.
func (r *Resolver) Resolve(ctx context.Context, subjectID string) (*models.Principal, error) {
	p, err := r.store.GetPrincipalByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.New(common.KindUnauthenticated, "The user belonging to this token no longer exists.")
		}
		r.log.Error(ctx, "principal lookup failed", "subject", subjectID, "error", err)
		return nil, common.Wrap(common.KindInternal, err, "load principal")
	}

	if !p.Active {
		return nil, common.New(common.KindUnauthenticated, "This account has been deactivated.")
	}
	if !p.Role.Valid() {
		return nil, common.New(common.KindInternal, "principal %s has invalid role %d", p.ID, uint8(p.Role))
	}

	return p, nil
}
