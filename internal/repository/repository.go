package repository

import (
	"alcyxob/tt-trainer/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound       = RepositoryError("not found")
	ErrStatusConflict = RepositoryError("status changed concurrently")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ExerciseFilter narrows catalog listings. Zero values match everything.
type ExerciseFilter struct {
	Phase      domain.Phase
	Difficulty domain.Difficulty
	Search     string // case-insensitive match on title or description
}

// SessionFilter narrows session listings. Zero values match everything.
type SessionFilter struct {
	Status domain.SessionStatus
	From   *time.Time
	To     *time.Time
}

// ExerciseRepository defines the interface for interacting with the exercise catalog.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	List(ctx context.Context, filter ExerciseFilter) ([]domain.Exercise, error) // newest first
	Update(ctx context.Context, exercise *domain.Exercise) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SessionRepository persists sessions together with their exercise ordering.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error)
	List(ctx context.Context, filter SessionFilter) ([]domain.Session, error) // by scheduledDate ascending
	// Save replaces metadata and the full ordering as one unit. It never
	// changes the status: the write applies only while the stored status still
	// equals session.Status, and fails with ErrStatusConflict otherwise.
	Save(ctx context.Context, session *domain.Session) error
	// UpdateStatus persists session.Status and session.CompletedAt only if the
	// stored status still equals expected. Returns ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, session *domain.Session, expected domain.SessionStatus) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// CountByExercise counts sessions that reference the exercise.
	CountByExercise(ctx context.Context, exerciseID primitive.ObjectID) (int64, error)
}

// HistoryRepository is the append-only store of completed exercise attempts.
type HistoryRepository interface {
	Append(ctx context.Context, record *domain.TrainingHistory) (primitive.ObjectID, error)
	ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.TrainingHistory, error) // by startedAt ascending
	CountByExercise(ctx context.Context, exerciseID primitive.ObjectID) (int64, error)
}
