package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fittrack/internal/dbx"
	"github.com/dmitrijs2005/fittrack/internal/server/repositories/exercises"
	"github.com/dmitrijs2005/fittrack/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/fittrack/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Exercises(db dbx.DBTX) exercises.Repository
}
