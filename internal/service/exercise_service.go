package service

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseInput carries the editable fields of an exercise.
type ExerciseInput struct {
	Title       string
	Description string
	Phase       domain.Phase
	Difficulty  domain.Difficulty
	Duration    int // seconds
	Repetitions int
	Shots       []domain.Shot
}

// ExerciseDetail is an exercise together with how many sessions reference it.
type ExerciseDetail struct {
	domain.Exercise
	SessionCount int64 `json:"sessionCount"`
}

// --- Service Interface ---
type ExerciseService interface {
	CreateExercise(ctx context.Context, in ExerciseInput) (*domain.Exercise, error)
	GetExercise(ctx context.Context, exerciseID primitive.ObjectID) (*ExerciseDetail, error)
	ListExercises(ctx context.Context, filter repository.ExerciseFilter) ([]domain.Exercise, error)
	UpdateExercise(ctx context.Context, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	DeleteExercise(ctx context.Context, exerciseID primitive.ObjectID) error
}

// --- Service Implementation ---

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	sessionRepo  repository.SessionRepository
	historyRepo  repository.HistoryRepository
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(
	exerciseRepo repository.ExerciseRepository,
	sessionRepo repository.SessionRepository,
	historyRepo repository.HistoryRepository,
) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
		sessionRepo:  sessionRepo,
		historyRepo:  historyRepo,
	}
}

func (in ExerciseInput) apply(e *domain.Exercise) {
	e.Title = in.Title
	e.Description = in.Description
	e.Phase = in.Phase
	e.Difficulty = in.Difficulty
	e.Duration = in.Duration
	e.Repetitions = in.Repetitions
	e.Shots = append([]domain.Shot{}, in.Shots...)
}

// CreateExercise validates and stores a new catalog entry.
func (s *exerciseService) CreateExercise(ctx context.Context, in ExerciseInput) (*domain.Exercise, error) {
	exercise := &domain.Exercise{}
	in.apply(exercise)
	if err := exercise.Validate(); err != nil {
		return nil, err
	}

	exerciseID, err := s.exerciseRepo.Create(ctx, exercise)
	if err != nil {
		return nil, err
	}
	exercise.ID = exerciseID
	return exercise, nil
}

// GetExercise retrieves one exercise with its session usage count.
func (s *exerciseService) GetExercise(ctx context.Context, exerciseID primitive.ObjectID) (*ExerciseDetail, error) {
	exercise, err := s.load(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	count, err := s.sessionRepo.CountByExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	return &ExerciseDetail{Exercise: *exercise, SessionCount: count}, nil
}

// ListExercises returns catalog entries matching the filter, newest first.
func (s *exerciseService) ListExercises(ctx context.Context, filter repository.ExerciseFilter) ([]domain.Exercise, error) {
	if filter.Phase != "" && !filter.Phase.Valid() {
		return nil, fmt.Errorf("%w: unknown phase %q", domain.ErrValidation, filter.Phase)
	}
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		return nil, fmt.Errorf("%w: unknown difficulty %q", domain.ErrValidation, filter.Difficulty)
	}
	return s.exerciseRepo.List(ctx, filter)
}

// UpdateExercise replaces the editable fields. Exercises referenced by the
// training history are frozen.
func (s *exerciseService) UpdateExercise(ctx context.Context, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	existing, err := s.load(ctx, exerciseID)
	if err != nil {
		return nil, err
	}

	used, err := s.historyRepo.CountByExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if used > 0 {
		return nil, fmt.Errorf("%w: exercise %s has %d history records and can no longer be edited", domain.ErrConflict, exerciseID.Hex(), used)
	}

	in.apply(existing)
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := s.exerciseRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: exercise %s", domain.ErrNotFound, exerciseID.Hex())
		}
		return nil, err
	}
	return existing, nil
}

// DeleteExercise removes an exercise that no session references.
func (s *exerciseService) DeleteExercise(ctx context.Context, exerciseID primitive.ObjectID) error {
	refs, err := s.sessionRepo.CountByExercise(ctx, exerciseID)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: exercise %s is used by %d session(s)", domain.ErrConflict, exerciseID.Hex(), refs)
	}

	if err := s.exerciseRepo.Delete(ctx, exerciseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: exercise %s", domain.ErrNotFound, exerciseID.Hex())
		}
		return err
	}
	return nil
}

func (s *exerciseService) load(ctx context.Context, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: exercise %s", domain.ErrNotFound, exerciseID.Hex())
		}
		return nil, err
	}
	return exercise, nil
}
