package users

import (
	"context"

	"github.com/dmitrijs2005/fittrack/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetPrincipalByID(ctx context.Context, id string) (*models.Principal, error)
	List(ctx context.Context) ([]models.Principal, error)
}
