package profiles

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

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`SELECT user_id, first_name, last_name, phone, date_of_birth,
		        height_cm, weight_kg, avatar_key, updated_at
		 FROM profiles
		 WHERE user_id = $1
		 `

	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.DateOfBirth,
		&p.HeightCm, &p.WeightKg, &p.AvatarKey, &p.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

// Upsert inserts or replaces the profile row. avatar_key is kept as is on
// update; it only changes through SetAvatarKey.
// A user id that is not a uuid or has no users row is NotFound.
func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Profile) error {
	if _, err := uuid.Parse(p.UserID); err != nil {
		return common.ErrorNotFound
	}

	query :=
		`INSERT INTO profiles (user_id, first_name, last_name, phone, date_of_birth, height_cm, weight_kg)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     phone = EXCLUDED.phone,
		     date_of_birth = EXCLUDED.date_of_birth,
		     height_cm = EXCLUDED.height_cm,
		     weight_kg = EXCLUDED.weight_kg,
		     updated_at = now()
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.FirstName, p.LastName, p.Phone, p.DateOfBirth, p.HeightCm, p.WeightKg,
	).Scan(&p.UpdatedAt)

	if err != nil {
		if dbx.IsForeignKeyViolation(err, "") {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) SetAvatarKey(ctx context.Context, userID, key string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return common.ErrorNotFound
	}

	query :=
		`UPDATE profiles SET avatar_key = $2, updated_at = now()
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, key)
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
