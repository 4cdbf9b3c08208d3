package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/cryptox"
	"github.com/dmitrijs2005/fittrack/internal/logging"
	"github.com/dmitrijs2005/fittrack/internal/server/auth"
	"github.com/dmitrijs2005/fittrack/internal/server/guard"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
	"github.com/dmitrijs2005/fittrack/internal/server/services"
	"github.com/dmitrijs2005/fittrack/internal/server/storage"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	ListUsers(ctx context.Context) ([]models.Principal, error)
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, cryptox.FieldErrors, error)
	Update(ctx context.Context, userID string, in services.ProfileInput) (*models.Profile, error)
	AvatarUpload(ctx context.Context, userID, contentType string) (*storage.Upload, error)
}

type ExerciseService interface {
	List(ctx context.Context, viewer *models.Principal) ([]models.Exercise, error)
	Create(ctx context.Context, owner *models.Principal, in services.ExerciseInput) (*models.Exercise, error)
	OwnerFromRoute(param string) func(r *http.Request) (string, error)
	Delete(ctx context.Context, id string) error
}

// Options carries the collaborators of the HTTP API.
type Options struct {
	Auth      AuthService
	Profiles  ProfileService
	Exercises ExerciseService
	Guard     *guard.Guard
	Errors    *ErrorResponder
	// Limiter throttles the credential endpoints. Nil disables throttling.
	Limiter *RateLimiter
	Log     logging.Logger

	// TokenTTL is the session cookie lifetime, normally the token TTL.
	TokenTTL     time.Duration
	CookieSecure bool
}

type Handler struct {
	auth      AuthService
	profiles  ProfileService
	exercises ExerciseService
	guard     *guard.Guard
	errs      *ErrorResponder
	limiter   *RateLimiter
	log       logging.Logger

	tokenTTL     time.Duration
	cookieSecure bool
}

func NewHandler(o Options) *Handler {
	return &Handler{
		auth:         o.Auth,
		profiles:     o.Profiles,
		exercises:    o.Exercises,
		guard:        o.Guard,
		errs:         o.Errors,
		limiter:      o.Limiter,
		log:          o.Log.With("module", "httpapi"),
		tokenTTL:     o.TokenTTL,
		cookieSecure: o.CookieSecure,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	s, err := h.auth.Register(r.Context(), in.Email, in.Password)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.sendSession(w, http.StatusCreated, s)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	s, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.sendSession(w, http.StatusOK, s)
}

func (h *Handler) sendSession(w http.ResponseWriter, code int, s *services.Session) {
	auth.SetTokenCookie(w, s.Token, h.tokenTTL, h.cookieSecure)
	writeJSON(w, code, envelope{
		Status: "success",
		Token:  s.Token,
		Data:   map[string]any{"user": s.User},
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w, h.cookieSecure)
	writeJSON(w, http.StatusOK, envelope{Status: "success"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := guard.PrincipalFromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, common.Plain(common.KindUnauthenticated, common.ErrUnauthenticated.Message))
		return
	}
	success(w, http.StatusOK, map[string]any{"user": p})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, fieldErrs, err := h.profiles.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	resp := envelope{Status: "success", Data: map[string]any{"profile": p}}
	if len(fieldErrs) > 0 {
		resp.FieldErrors = make(map[string]string, len(fieldErrs))
		for _, f := range fieldErrs.Fields() {
			resp.FieldErrors[f] = common.AsAppError(fieldErrs[f]).Message
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	p, err := h.profiles.Update(r.Context(), chi.URLParam(r, "userId"), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"profile": p})
}

type avatarRequest struct {
	ContentType string `json:"content_type"`
}

func (h *Handler) avatarUpload(w http.ResponseWriter, r *http.Request) {
	var in avatarRequest
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	up, err := h.profiles.AvatarUpload(r.Context(), chi.URLParam(r, "userId"), in.ContentType)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"upload": up})
}

func (h *Handler) listExercises(w http.ResponseWriter, r *http.Request) {
	viewer, _ := guard.PrincipalFromContext(r.Context())
	list, err := h.exercises.List(r.Context(), viewer)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	n := len(list)
	writeJSON(w, http.StatusOK, envelope{
		Status:  "success",
		Results: &n,
		Data:    map[string]any{"exercises": list},
	})
}

func (h *Handler) createExercise(w http.ResponseWriter, r *http.Request) {
	owner, ok := guard.PrincipalFromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, common.Plain(common.KindUnauthenticated, common.ErrUnauthenticated.Message))
		return
	}
	var in services.ExerciseInput
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	e, err := h.exercises.Create(r.Context(), owner, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	success(w, http.StatusCreated, map[string]any{"exercise": e})
}

func (h *Handler) deleteExercise(w http.ResponseWriter, r *http.Request) {
	if err := h.exercises.Delete(r.Context(), chi.URLParam(r, "exerciseId")); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	n := len(users)
	writeJSON(w, http.StatusOK, envelope{
		Status:  "success",
		Results: &n,
		Data:    map[string]any{"users": users},
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.errs.Write(w, r, common.New(common.KindNotFound, "Can't find %s on this server!", r.URL.Path))
}
