package services

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/logging"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
	"github.com/dmitrijs2005/fittrack/internal/server/repositories/repomanager"
)

// ExerciseInput is the body of a create request.
type ExerciseInput struct {
	Name        string `json:"name"`
	MuscleGroup string `json:"muscle_group"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type ExerciseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewExerciseService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *ExerciseService {
	return &ExerciseService{db: db, repomanager: m, log: log.With("module", "exercises")}
}

// List returns the exercises visible to viewer. A nil viewer sees public
// exercises only.
func (s *ExerciseService) List(ctx context.Context, viewer *models.Principal) ([]models.Exercise, error) {
	viewerID := ""
	if viewer != nil {
		viewerID = viewer.ID
	}
	list, err := s.repomanager.Exercises(s.db).List(ctx, viewerID)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, err, "list exercises")
	}
	return list, nil
}

// Create stores an exercise owned by owner. Only admins may publish.
func (s *ExerciseService) Create(ctx context.Context, owner *models.Principal, in ExerciseInput) (*models.Exercise, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.MuscleGroup = strings.ToLower(strings.TrimSpace(in.MuscleGroup))
	if in.Name == "" || utf8.RuneCountInString(in.Name) > maxNameLength {
		return nil, common.New(common.KindValidationFailure, "An exercise must have a name of at most %d characters", maxNameLength)
	}
	if in.MuscleGroup == "" {
		return nil, common.New(common.KindValidationFailure, "An exercise must have a muscle group")
	}
	if in.Public && !owner.IsAdmin() {
		return nil, common.New(common.KindForbidden, "Only administrators can publish exercises")
	}

	e, err := s.repomanager.Exercises(s.db).Create(ctx, &models.Exercise{
		Name:        in.Name,
		MuscleGroup: in.MuscleGroup,
		Description: in.Description,
		Public:      in.Public,
		CreatedBy:   owner.ID,
	})
	if err != nil {
		return nil, common.Wrap(common.KindInternal, err, "create exercise")
	}
	return e, nil
}

// Owner returns the creator of exercise id, "" when unknown.
func (s *ExerciseService) Owner(ctx context.Context, id string) (string, error) {
	owner, err := s.repomanager.Exercises(s.db).GetOwner(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.New(common.KindNotFound, "No exercise found with that ID")
		}
		return "", common.Wrap(common.KindInternal, err, "load exercise owner")
	}
	return owner, nil
}

// OwnerFromRoute adapts Owner to a route parameter, for ownership policies.
// A missing parameter yields an unknown owner.
func (s *ExerciseService) OwnerFromRoute(param string) func(r *http.Request) (string, error) {
	return func(r *http.Request) (string, error) {
		id := chi.URLParam(r, param)
		if id == "" {
			return "", nil
		}
		return s.Owner(r.Context(), id)
	}
}

func (s *ExerciseService) Delete(ctx context.Context, id string) error {
	if err := s.repomanager.Exercises(s.db).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.New(common.KindNotFound, "No exercise found with that ID")
		}
		return common.Wrap(common.KindInternal, err, "delete exercise")
	}
	s.log.Info(ctx, "exercise deleted", "exercise_id", id)
	return nil
}
