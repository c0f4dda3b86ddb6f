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

// SessionUpdate changes session metadata. Nil fields are left as they are.
type SessionUpdate struct {
	Title             *string
	Description       *string
	ScheduledDate     *time.Time
	EstimatedDuration *int
}

// --- Service Interface ---
type SessionService interface {
	CreateSession(ctx context.Context, in SessionInput) (*domain.Session, error)
	GetSession(ctx context.Context, sessionID primitive.ObjectID) (*domain.Session, error)
	ListSessions(ctx context.Context, filter repository.SessionFilter) ([]domain.Session, error)
	UpdateSession(ctx context.Context, sessionID primitive.ObjectID, upd SessionUpdate) (*domain.Session, error)
	ReorderExercises(ctx context.Context, sessionID primitive.ObjectID, exerciseIDs []primitive.ObjectID) (*domain.Session, error)
	DuplicateSession(ctx context.Context, sessionID primitive.ObjectID, overrides CloneOverrides) (*domain.Session, error)
	CancelSession(ctx context.Context, sessionID primitive.ObjectID) (*domain.Session, error)
	DeleteSession(ctx context.Context, sessionID primitive.ObjectID) error
}

// --- Service Implementation ---

type sessionService struct {
	sessionRepo repository.SessionRepository
	builder     *SessionBuilder
	clock       func() time.Time
}

// NewSessionService creates a new instance of sessionService.
func NewSessionService(sessionRepo repository.SessionRepository, builder *SessionBuilder, clock func() time.Time) SessionService {
	if clock == nil {
		clock = time.Now
	}
	return &sessionService{
		sessionRepo: sessionRepo,
		builder:     builder,
		clock:       clock,
	}
}

// CreateSession builds a PLANNED session and stores it with its ordering.
func (s *sessionService) CreateSession(ctx context.Context, in SessionInput) (*domain.Session, error) {
	session, err := s.builder.Build(ctx, in)
	if err != nil {
		return nil, err
	}
	sessionID, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	session.ID = sessionID
	return session, nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID primitive.ObjectID) (*domain.Session, error) {
	return loadSession(ctx, s.sessionRepo, sessionID)
}

// ListSessions returns sessions matching the filter ordered by scheduled date.
func (s *sessionService) ListSessions(ctx context.Context, filter repository.SessionFilter) ([]domain.Session, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: endDate is before startDate", domain.ErrValidation)
	}
	return s.sessionRepo.List(ctx, filter)
}

// UpdateSession edits metadata. Status and ordering are not touched.
func (s *sessionService) UpdateSession(ctx context.Context, sessionID primitive.ObjectID, upd SessionUpdate) (*domain.Session, error) {
	session, err := loadSession(ctx, s.sessionRepo, sessionID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		if *upd.Title == "" {
			return nil, fmt.Errorf("%w: session title is required", domain.ErrValidation)
		}
		session.Title = *upd.Title
	}
	if upd.Description != nil {
		session.Description = *upd.Description
	}
	if upd.ScheduledDate != nil {
		session.ScheduledDate = upd.ScheduledDate.UTC()
	}
	if upd.EstimatedDuration != nil {
		if *upd.EstimatedDuration < 0 {
			return nil, fmt.Errorf("%w: estimated duration cannot be negative", domain.ErrValidation)
		}
		session.EstimatedDuration = *upd.EstimatedDuration
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ReorderExercises replaces the ordering of a PLANNED session.
func (s *sessionService) ReorderExercises(ctx context.Context, sessionID primitive.ObjectID, exerciseIDs []primitive.ObjectID) (*domain.Session, error) {
	session, err := loadSession(ctx, s.sessionRepo, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.StatusPlanned {
		return nil, fmt.Errorf("%w: session %s is %s, only planned sessions can be reordered", domain.ErrInvalidState, sessionID.Hex(), session.Status)
	}

	reordered, err := s.builder.Reorder(session, exerciseIDs)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, reordered); err != nil {
		return nil, err
	}
	return reordered, nil
}

// DuplicateSession stores a PLANNED copy of any session, whatever its status.
func (s *sessionService) DuplicateSession(ctx context.Context, sessionID primitive.ObjectID, overrides CloneOverrides) (*domain.Session, error) {
	source, err := loadSession(ctx, s.sessionRepo, sessionID)
	if err != nil {
		return nil, err
	}

	clone := s.builder.Clone(source, overrides)
	cloneID, err := s.sessionRepo.Create(ctx, clone)
	if err != nil {
		return nil, err
	}
	clone.ID = cloneID
	return clone, nil
}

// CancelSession moves a PLANNED or IN_PROGRESS session to CANCELLED. The
// write is guarded on the status that was read.
func (s *sessionService) CancelSession(ctx context.Context, sessionID primitive.ObjectID) (*domain.Session, error) {
	session, err := loadSession(ctx, s.sessionRepo, sessionID)
	if err != nil {
		return nil, err
	}

	cancelled := session.Copy()
	if err := cancelled.Cancel(s.clock()); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.UpdateStatus(ctx, &cancelled, session.Status); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, fmt.Errorf("%w: session %s changed status concurrently", domain.ErrInvalidState, sessionID.Hex())
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID.Hex())
		}
		return nil, err
	}
	return &cancelled, nil
}

// DeleteSession removes a session that is not being run. History records are kept.
func (s *sessionService) DeleteSession(ctx context.Context, sessionID primitive.ObjectID) error {
	session, err := loadSession(ctx, s.sessionRepo, sessionID)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusInProgress {
		return fmt.Errorf("%w: session %s is in progress; cancel it first", domain.ErrInvalidState, sessionID.Hex())
	}

	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID.Hex())
		}
		return err
	}
	return nil
}

func (s *sessionService) save(ctx context.Context, session *domain.Session) error {
	err := s.sessionRepo.Save(ctx, session)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStatusConflict):
		return fmt.Errorf("%w: session %s changed status concurrently", domain.ErrInvalidState, session.ID.Hex())
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, session.ID.Hex())
	}
	return err
}

func loadSession(ctx context.Context, repo repository.SessionRepository, sessionID primitive.ObjectID) (*domain.Session, error) {
	session, err := repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID.Hex())
		}
		return nil, err
	}
	return session, nil
}
