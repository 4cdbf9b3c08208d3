package profiles

import (
	"context"

	"github.com/dmitrijs2005/fittrack/internal/server/models"
)

// Repository stores profiles exactly as given. Callers encrypt the protected
// columns before Upsert and decrypt them after Get.
type Repository interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
	SetAvatarKey(ctx context.Context, userID, key string) error
}
