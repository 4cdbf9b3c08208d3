package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/dbx"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
	exercisesrepo "github.com/dmitrijs2005/fittrack/internal/server/repositories/exercises"
	profilesrepo "github.com/dmitrijs2005/fittrack/internal/server/repositories/profiles"
	usersrepo "github.com/dmitrijs2005/fittrack/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type fakeUsersRepo struct {
	byEmail   map[string]*models.User
	createErr error
	getErr    error
	list      []models.Principal
	listErr   error
	created   []*models.User
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = "5b0a3c7e-6f1d-4b59-9a51-3d3f5c1e2a10"
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetPrincipalByID(ctx context.Context, id string) (*models.Principal, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			p := u.Principal()
			return &p, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]models.Principal, error) {
	return f.list, f.listErr
}

type fakeProfilesRepo struct {
	rows      map[string]*models.Profile
	getErr    error
	upsertErr error
	avatarErr error
}

func newFakeProfiles() *fakeProfilesRepo {
	return &fakeProfilesRepo{rows: map[string]*models.Profile{}}
}

func (f *fakeProfilesRepo) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.rows[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p.Clone(), nil
}

func (f *fakeProfilesRepo) Upsert(ctx context.Context, p *models.Profile) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.rows[p.UserID] = p.Clone()
	return nil
}

func (f *fakeProfilesRepo) SetAvatarKey(ctx context.Context, userID, key string) error {
	if f.avatarErr != nil {
		return f.avatarErr
	}
	p, ok := f.rows[userID]
	if !ok {
		return common.ErrorNotFound
	}
	p.AvatarKey = &key
	return nil
}

type fakeExercisesRepo struct {
	list     []models.Exercise
	viewer   string
	owners   map[string]string
	created  *models.Exercise
	err      error
	deleted  []string
	ownerErr error
}

func (f *fakeExercisesRepo) List(ctx context.Context, viewerID string) ([]models.Exercise, error) {
	f.viewer = viewerID
	return f.list, f.err
}

func (f *fakeExercisesRepo) Create(ctx context.Context, e *models.Exercise) (*models.Exercise, error) {
	if f.err != nil {
		return nil, f.err
	}
	e.ID = "e-new"
	f.created = e
	return e, nil
}

func (f *fakeExercisesRepo) GetOwner(ctx context.Context, id string) (string, error) {
	if f.ownerErr != nil {
		return "", f.ownerErr
	}
	owner, ok := f.owners[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	return owner, nil
}

func (f *fakeExercisesRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.owners[id]; !ok {
		return common.ErrorNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	p *fakeProfilesRepo
	e *fakeExercisesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository         { return m.u }
func (m *fakeRepoManager) Profiles(db dbx.DBTX) profilesrepo.Repository   { return m.p }
func (m *fakeRepoManager) Exercises(db dbx.DBTX) exercisesrepo.Repository { return m.e }

type fakeIssuer struct {
	err    error
	issued []string
}

func (f *fakeIssuer) Issue(userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, userID)
	return "token-for-" + userID, nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
