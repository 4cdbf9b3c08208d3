package guard

import (
	"context"

	"github.com/dmitrijs2005/fittrack/internal/server/models"
)

type principalContextKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal attached by Protect or Optional.
func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*models.Principal)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}
