package exercises

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/dbx"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, viewerID string) ([]models.Exercise, error) {
	query :=
		`SELECT id, name, muscle_group, description, public, COALESCE(created_by::text, ''), created_at
		 FROM exercises
		 WHERE public OR created_by = NULLIF($1, '')::uuid
		 ORDER BY name, id
		 `

	rows, err := r.db.QueryContext(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.MuscleGroup, &e.Description, &e.Public, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Exercise) (*models.Exercise, error) {
	query :=
		`INSERT INTO exercises (name, muscle_group, description, public, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		e.Name, e.MuscleGroup, e.Description, e.Public, e.CreatedBy).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) GetOwner(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", common.ErrorNotFound
	}

	query :=
		`SELECT COALESCE(created_by::text, '') FROM exercises
		 WHERE id = $1
		 `

	var owner string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&owner)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return owner, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}

	query := `DELETE FROM exercises WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
