package service

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionInput carries the fields needed to build a new session.
type SessionInput struct {
	Title             string
	Description       string
	ScheduledDate     time.Time
	EstimatedDuration int // minutes
	ExerciseIDs       []primitive.ObjectID
}

// CloneOverrides replaces selected fields of the source session. Nil keeps the default.
type CloneOverrides struct {
	Title         *string
	ScheduledDate *time.Time
}

// SessionBuilder assembles sessions in memory. It reads the catalog to check
// references but never writes; SessionService owns persistence.
type SessionBuilder struct {
	exercises  repository.ExerciseRepository
	allowEmpty bool
	clock      func() time.Time
}

// NewSessionBuilder creates a builder. allowEmpty permits sessions with no exercises.
func NewSessionBuilder(exercises repository.ExerciseRepository, allowEmpty bool, clock func() time.Time) *SessionBuilder {
	if clock == nil {
		clock = time.Now
	}
	return &SessionBuilder{exercises: exercises, allowEmpty: allowEmpty, clock: clock}
}

// Build returns a PLANNED session whose exercises are ranked 1..N in input
// order. The same exercise may appear more than once.
func (b *SessionBuilder) Build(ctx context.Context, in SessionInput) (*domain.Session, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: session title is required", domain.ErrValidation)
	}
	if in.EstimatedDuration < 0 {
		return nil, fmt.Errorf("%w: estimated duration cannot be negative", domain.ErrValidation)
	}
	if err := b.checkNotEmpty(in.ExerciseIDs); err != nil {
		return nil, err
	}
	if err := b.checkExist(ctx, in.ExerciseIDs); err != nil {
		return nil, err
	}

	now := b.clock().UTC()
	scheduled := in.ScheduledDate
	if scheduled.IsZero() {
		scheduled = now
	}
	return &domain.Session{
		Title:             in.Title,
		Description:       in.Description,
		ScheduledDate:     scheduled.UTC(),
		EstimatedDuration: in.EstimatedDuration,
		Status:            domain.StatusPlanned,
		Exercises:         domain.RankExercises(in.ExerciseIDs),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Reorder returns a copy of session whose ordering is fully replaced by ids.
// Every id must already be part of the session; ids left out are dropped.
func (b *SessionBuilder) Reorder(session *domain.Session, ids []primitive.ObjectID) (*domain.Session, error) {
	if err := b.checkNotEmpty(ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !session.Contains(id) {
			return nil, fmt.Errorf("%w: exercise %s is not part of session %s", domain.ErrValidation, id.Hex(), session.ID.Hex())
		}
	}
	reordered := session.Copy()
	reordered.Exercises = domain.RankExercises(ids)
	reordered.UpdatedAt = b.clock().UTC()
	return &reordered, nil
}

// Clone returns a new PLANNED session with the same ordered exercise
// references. The title defaults to "<title> (copy)" and the scheduled date
// to now.
func (b *SessionBuilder) Clone(session *domain.Session, o CloneOverrides) *domain.Session {
	now := b.clock().UTC()
	clone := session.Copy()
	clone.ID = primitive.NilObjectID
	clone.Status = domain.StatusPlanned
	clone.CompletedAt = nil
	clone.Title = session.Title + " (copy)"
	if o.Title != nil && *o.Title != "" {
		clone.Title = *o.Title
	}
	clone.ScheduledDate = now
	if o.ScheduledDate != nil {
		clone.ScheduledDate = o.ScheduledDate.UTC()
	}
	if clone.Exercises == nil {
		clone.Exercises = []domain.SessionExercise{}
	}
	clone.CreatedAt = now
	clone.UpdatedAt = now
	return &clone
}

func (b *SessionBuilder) checkNotEmpty(ids []primitive.ObjectID) error {
	if len(ids) == 0 && !b.allowEmpty {
		return fmt.Errorf("%w: a session needs at least one exercise", domain.ErrValidation)
	}
	return nil
}

func (b *SessionBuilder) checkExist(ctx context.Context, ids []primitive.ObjectID) error {
	checked := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if checked[id] {
			continue
		}
		if _, err := b.exercises.GetByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: unknown exercise %s", domain.ErrValidation, id.Hex())
			}
			return err
		}
		checked[id] = true
	}
	return nil
}
