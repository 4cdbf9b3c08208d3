// Package services contains the server-side business logic behind the HTTP
// handlers. This file implements AuthService: registration, login and the
// admin user listing.
package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/dbx"
	"github.com/dmitrijs2005/fittrack/internal/logging"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
	"github.com/dmitrijs2005/fittrack/internal/server/repositories/repomanager"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	MaxPasswordLength = 72
)

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

var errBadCredentials = common.New(common.KindUnauthenticated, "Incorrect email or password")

// TokenIssuer signs session tokens. auth.TokenAuthority implements it.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Session is the result of a successful register or login.
type Session struct {
	Token string           `json:"token"`
	User  models.Principal `json:"user"`
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenIssuer
	log         logging.Logger

	// dummyHash is compared against when the email is unknown so that both
	// login failures cost one bcrypt comparison.
	dummyHash []byte
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenIssuer, log logging.Logger) *AuthService {
	dummy, err := bcrypt.GenerateFromPassword(common.GenerateRandByteArray(16), bcryptCost)
	if err != nil {
		panic(err)
	}
	return &AuthService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		log:         log.With("module", "auth"),
		dummyHash:   dummy,
	}
}

// Register creates a user with role user and an empty profile in one
// transaction and returns a session for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, err, "hash password")
	}

	user := &models.User{Email: email, PasswordHash: hash, Role: models.RoleUser, Active: true}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.repomanager.Profiles(tx).Upsert(ctx, &models.Profile{UserID: user.ID})
	})
	if err != nil {
		if common.KindOf(err) == common.KindConflict {
			return nil, err
		}
		return nil, common.Wrap(common.KindInternal, err, "register user")
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return s.newSession(user)
}

// Login checks the credentials and returns a session. Unknown email and
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, common.New(common.KindValidationFailure, "Please provide email and password!")
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, errBadCredentials
		}
		return nil, common.Wrap(common.KindInternal, err, "load user")
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	if !user.Active {
		return nil, common.New(common.KindUnauthenticated, "This account has been deactivated.")
	}

	return s.newSession(user)
}

// ListUsers returns every account as a principal.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.Principal, error) {
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, err, "list users")
	}
	if list == nil {
		list = []models.Principal{}
	}
	return list, nil
}

func (s *AuthService) newSession(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user.Principal()}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", common.New(common.KindValidationFailure, "Please provide a valid email")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return common.New(common.KindValidationFailure, "Password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return common.New(common.KindValidationFailure, "Password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}
