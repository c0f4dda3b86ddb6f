package service

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"alcyxob/tt-trainer/internal/storage"
	"alcyxob/tt-trainer/internal/training"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompletedExercise is the result of confirming the current exercise.
type CompletedExercise struct {
	Record domain.TrainingHistory `json:"record"`
	State  training.RunState      `json:"state"`
}

// ReportExport points at an archived run report.
type ReportExport struct {
	ObjectKey string           `json:"objectKey"`
	URL       string           `json:"url"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Report    domain.RunReport `json:"report"`
}

// --- Service Interface ---
type TrainingService interface {
	Start(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error)
	State(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error)
	CompleteExercise(ctx context.Context, sessionID primitive.ObjectID, notes string) (*CompletedExercise, error)
	Pause(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error)
	Resume(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error)
	Skip(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error)
	Previous(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error)
	Finish(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error)
	Reset(ctx context.Context, sessionID primitive.ObjectID) error
	// Cancel cancels the session, then discards its live run, if any. A
	// rejected cancel leaves the run untouched.
	Cancel(ctx context.Context, sessionID primitive.ObjectID) (*domain.Session, error)
	History(ctx context.Context, sessionID primitive.ObjectID) ([]domain.TrainingHistory, error)
	ExportReport(ctx context.Context, sessionID primitive.ObjectID) (*ReportExport, error)
}

// --- Service Implementation ---

// Finished runs stay readable through State until this long after completion.
const finishedRunRetention = time.Hour

// trainingService keeps one engine per session in memory.
type trainingService struct {
	sessions     SessionService
	exerciseRepo repository.ExerciseRepository
	sessionRepo  repository.SessionRepository
	historyRepo  repository.HistoryRepository
	archive      storage.ReportArchive // nil when archiving is disabled
	urlExpiry    time.Duration
	clock        func() time.Time

	mu      sync.Mutex
	engines map[primitive.ObjectID]*training.Engine
}

// NewTrainingService creates a new instance of trainingService.
func NewTrainingService(
	sessions SessionService,
	exerciseRepo repository.ExerciseRepository,
	sessionRepo repository.SessionRepository,
	historyRepo repository.HistoryRepository,
	archive storage.ReportArchive,
	urlExpiry time.Duration,
	clock func() time.Time,
) TrainingService {
	if clock == nil {
		clock = time.Now
	}
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &trainingService{
		sessions:     sessions,
		exerciseRepo: exerciseRepo,
		sessionRepo:  sessionRepo,
		historyRepo:  historyRepo,
		archive:      archive,
		urlExpiry:    urlExpiry,
		clock:        clock,
		engines:      make(map[primitive.ObjectID]*training.Engine),
	}
}

// register stores the engine of a run that just started and evicts runs that
// finished more than finishedRunRetention ago.
func (s *trainingService) register(sessionID primitive.ObjectID, engine *training.Engine) {
	cutoff := s.clock().Add(-finishedRunRetention)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, other := range s.engines {
		state := other.State()
		if state.Running || state.Session == nil || state.Session.CompletedAt == nil {
			continue
		}
		if state.Session.CompletedAt.Before(cutoff) {
			delete(s.engines, id)
		}
	}
	s.engines[sessionID] = engine
}

// activeEngine returns the engine of a session that has been started.
func (s *trainingService) activeEngine(sessionID primitive.ObjectID) (*training.Engine, error) {
	s.mu.Lock()
	engine, ok := s.engines[sessionID]
	s.mu.Unlock()

	if !ok || engine.State().Session == nil {
		return nil, fmt.Errorf("%w: no run for session %s", domain.ErrNotFound, sessionID.Hex())
	}
	return engine, nil
}

func (s *trainingService) dropEngine(sessionID primitive.ObjectID) *training.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()

	engine := s.engines[sessionID]
	delete(s.engines, sessionID)
	return engine
}

// Start begins a run. The engine is registered only after the guarded
// PLANNED to IN_PROGRESS write succeeded, so of concurrent starts only the
// winner is kept.
func (s *trainingService) Start(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return training.RunState{}, err
	}

	engine := training.NewEngine(s.exerciseRepo, s.sessionRepo, s.historyRepo, s.clock)
	if err := engine.Start(ctx, session); err != nil {
		return training.RunState{}, err
	}
	s.register(sessionID, engine)
	return engine.State(), nil
}

func (s *trainingService) State(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error) {
	engine, err := s.activeEngine(sessionID)
	if err != nil {
		return training.RunState{}, err
	}
	return engine.State(), nil
}

// CompleteExercise records the current exercise. When the record was stored
// but finishing the run failed, the error is returned with a nil result.
func (s *trainingService) CompleteExercise(ctx context.Context, sessionID primitive.ObjectID, notes string) (*CompletedExercise, error) {
	engine, err := s.activeEngine(sessionID)
	if err != nil {
		return nil, err
	}
	record, err := engine.CompleteCurrent(ctx, notes)
	if err != nil {
		return nil, err
	}
	return &CompletedExercise{Record: *record, State: engine.State()}, nil
}

func (s *trainingService) Pause(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error) {
	return s.navigate(sessionID, (*training.Engine).Pause)
}

func (s *trainingService) Resume(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error) {
	return s.navigate(sessionID, (*training.Engine).Resume)
}

func (s *trainingService) Skip(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error) {
	return s.navigate(sessionID, (*training.Engine).Skip)
}

func (s *trainingService) Previous(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error) {
	return s.navigate(sessionID, (*training.Engine).Previous)
}

func (s *trainingService) navigate(sessionID primitive.ObjectID, op func(*training.Engine)) (training.RunState, error) {
	engine, err := s.activeEngine(sessionID)
	if err != nil {
		return training.RunState{}, err
	}
	op(engine)
	return engine.State(), nil
}

func (s *trainingService) Finish(ctx context.Context, sessionID primitive.ObjectID) (training.RunState, error) {
	engine, err := s.activeEngine(sessionID)
	if err != nil {
		return training.RunState{}, err
	}
	if err := engine.Finish(ctx); err != nil {
		return training.RunState{}, err
	}
	return engine.State(), nil
}

// Reset forgets the run. The stored session status is left as it is.
func (s *trainingService) Reset(ctx context.Context, sessionID primitive.ObjectID) error {
	engine := s.dropEngine(sessionID)
	if engine == nil {
		return fmt.Errorf("%w: no run for session %s", domain.ErrNotFound, sessionID.Hex())
	}
	engine.Reset()
	return nil
}

func (s *trainingService) Cancel(ctx context.Context, sessionID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.sessions.CancelSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if engine := s.dropEngine(sessionID); engine != nil {
		engine.Reset()
	}
	return session, nil
}

// History lists the stored records of a session, in the order they were started.
func (s *trainingService) History(ctx context.Context, sessionID primitive.ObjectID) ([]domain.TrainingHistory, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListBySession(ctx, sessionID)
}

// ExportReport archives a JSON summary of the session and its history and
// returns a temporary download URL.
func (s *trainingService) ExportReport(ctx context.Context, sessionID primitive.ObjectID) (*ReportExport, error) {
	if s.archive == nil {
		return nil, storage.ErrArchiveDisabled
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := s.historyRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	report := domain.RunReport{
		SessionID:   session.ID,
		StartedAt:   firstStart(records),
		Title:       session.Title,
		Status:      session.Status,
		CompletedAt: session.CompletedAt,
		History:     records,
		GeneratedAt: now,
		ObjectKey:   storage.ReportKey(sessionID.Hex(), uuid.NewString()),
	}
	if err := s.archive.PutReport(ctx, &report); err != nil {
		return nil, err
	}

	url, err := s.archive.PresignedReportURL(ctx, report.ObjectKey, s.urlExpiry)
	if err != nil {
		return nil, err
	}
	return &ReportExport{
		ObjectKey: report.ObjectKey,
		URL:       url,
		ExpiresAt: now.Add(s.urlExpiry),
		Report:    report,
	}, nil
}

// firstStart returns the earliest startedAt of the records, or nil.
func firstStart(records []domain.TrainingHistory) *time.Time {
	var first *time.Time
	for i := range records {
		if first == nil || records[i].StartedAt.Before(*first) {
			t := records[i].StartedAt
			first = &t
		}
	}
	return first
}
