package exercises

import (
	"context"

	"github.com/dmitrijs2005/fittrack/internal/server/models"
)

type Repository interface {
	// List returns public exercises plus the private ones created by
	// viewerID. An empty viewerID yields public exercises only.
	List(ctx context.Context, viewerID string) ([]models.Exercise, error)
	Create(ctx context.Context, e *models.Exercise) (*models.Exercise, error)
	// GetOwner returns the creator id, "" when the creator is unknown.
	GetOwner(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}
