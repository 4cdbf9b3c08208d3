package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/cryptox"
	"github.com/dmitrijs2005/fittrack/internal/logging"
	"github.com/dmitrijs2005/fittrack/internal/server/auth"
	"github.com/dmitrijs2005/fittrack/internal/server/guard"
	"github.com/dmitrijs2005/fittrack/internal/server/identity"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
	"github.com/dmitrijs2005/fittrack/internal/server/services"
	"github.com/dmitrijs2005/fittrack/internal/server/storage"
)

const (
	aliceID = "11111111-1111-1111-1111-111111111111"
	bobID   = "22222222-2222-2222-2222-222222222222"
	rootID  = "33333333-3333-3333-3333-333333333333"
	goneID  = "44444444-4444-4444-4444-444444444444"
	idleID  = "55555555-5555-5555-5555-555555555555"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type principalStore map[string]*models.Principal

func (s principalStore) GetPrincipalByID(ctx context.Context, id string) (*models.Principal, error) {
	p, ok := s[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeAuth struct {
	tokens    *auth.TokenAuthority
	store     principalStore
	passwords map[string]string
}

func (f *fakeAuth) Register(ctx context.Context, email, password string) (*services.Session, error) {
	for _, p := range f.store {
		if p.Email == email {
			return nil, common.New(common.KindConflict, "Email is already registered")
		}
	}
	return nil, common.New(common.KindInternal, "register is not wired in tests")
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*services.Session, error) {
	for id, p := range f.store {
		if p.Email == email && f.passwords[id] == password {
			tok, err := f.tokens.Issue(id)
			if err != nil {
				return nil, err
			}
			return &services.Session{Token: tok, User: *p}, nil
		}
	}
	return nil, common.New(common.KindUnauthenticated, "Incorrect email or password")
}

func (f *fakeAuth) ListUsers(ctx context.Context) ([]models.Principal, error) {
	out := make([]models.Principal, 0, len(f.store))
	for _, id := range []string{aliceID, bobID, rootID, idleID} {
		if p, ok := f.store[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// fakeProfiles keeps encrypted rows the way the database would.
type fakeProfiles struct {
	cipher  *cryptox.FieldCipher
	mu      sync.Mutex
	rows    map[string]*models.Profile
	updates int
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*models.Profile, cryptox.FieldErrors, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return nil, nil, common.New(common.KindNotFound, "No profile found for that user")
	}
	p := row.Clone()
	fe := f.cipher.DecryptStrings(p.ProtectedFields())
	for _, name := range fe.Fields() {
		p.ClearProtectedField(name)
	}
	return p, fe, nil
}

func (f *fakeProfiles) Update(ctx context.Context, userID string, in services.ProfileInput) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	p := &models.Profile{UserID: userID, FirstName: in.FirstName, LastName: in.LastName}
	stored := p.Clone()
	if err := f.cipher.EncryptStrings(stored.ProtectedFields()); err != nil {
		return nil, err
	}
	f.rows[userID] = stored
	return p, nil
}

func (f *fakeProfiles) AvatarUpload(ctx context.Context, userID, contentType string) (*storage.Upload, error) {
	return &storage.Upload{Key: "avatars/" + userID + "/x", URL: "https://s3.example/put"}, nil
}

func (f *fakeProfiles) stored(userID string) *models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[userID]
}

type fakeExercises struct {
	owners  map[string]string
	viewers []*models.Principal
	deleted []string
}

func (f *fakeExercises) List(ctx context.Context, viewer *models.Principal) ([]models.Exercise, error) {
	f.viewers = append(f.viewers, viewer)
	list := []models.Exercise{{ID: "e-public", Name: "Squat", Public: true}}
	if viewer != nil {
		list = append(list, models.Exercise{ID: "e-" + viewer.ID, Name: "Private", CreatedBy: viewer.ID})
	}
	return list, nil
}

func (f *fakeExercises) Create(ctx context.Context, owner *models.Principal, in services.ExerciseInput) (*models.Exercise, error) {
	return &models.Exercise{ID: "e-new", Name: in.Name, MuscleGroup: in.MuscleGroup, CreatedBy: owner.ID}, nil
}

func (f *fakeExercises) OwnerFromRoute(param string) func(r *http.Request) (string, error) {
	return func(r *http.Request) (string, error) {
		owner, ok := f.owners[chi.URLParam(r, param)]
		if !ok {
			return "", common.New(common.KindNotFound, "No exercise found with that ID")
		}
		return owner, nil
	}
}

func (f *fakeExercises) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type testAPI struct {
	handler   http.Handler
	clock     *clock
	tokens    *auth.TokenAuthority
	profiles  *fakeProfiles
	exercises *fakeExercises
}

func newTestAPI(t *testing.T, production bool) *testAPI {
	t.Helper()

	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens, err := auth.NewTokenAuthority([]byte("test-secret"), time.Hour, auth.WithClock(c.Now))
	require.NoError(t, err)

	cipher, err := cryptox.NewFieldCipher("0123456789abcdef0123456789abcdef", 16)
	require.NoError(t, err)

	store := principalStore{
		aliceID: {ID: aliceID, Email: "alice@example.com", Role: models.RoleUser, Active: true},
		bobID:   {ID: bobID, Email: "bob@example.com", Role: models.RoleUser, Active: true},
		rootID:  {ID: rootID, Email: "root@example.com", Role: models.RoleAdmin, Active: true},
		idleID:  {ID: idleID, Email: "idle@example.com", Role: models.RoleUser, Active: false},
	}

	log := logging.Nop()
	errs := NewErrorResponder(production, log)
	g := guard.New(tokens, identity.NewResolver(store, log), errs.Write, log)

	profiles := &fakeProfiles{cipher: cipher, rows: map[string]*models.Profile{}}
	exercises := &fakeExercises{owners: map[string]string{"e-alice": aliceID, "e-orphan": ""}}

	h := NewHandler(Options{
		Auth: &fakeAuth{
			tokens:    tokens,
			store:     store,
			passwords: map[string]string{aliceID: "alice-pass", bobID: "bob-pass", rootID: "root-pass", idleID: "idle-pass"},
		},
		Profiles:  profiles,
		Exercises: exercises,
		Guard:     g,
		Errors:    errs,
		Log:       log,
		TokenTTL:  tokens.TTL(),
	})

	return &testAPI{handler: h.Routes(), clock: c, tokens: tokens, profiles: profiles, exercises: exercises}
}

func (a *testAPI) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := a.tokens.Issue(userID)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, r)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
