// Package training drives a live run of a training session: the current
// exercise pointer, pause/resume time accounting, navigation and the
// completion records that end up in the training history.
package training

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Engine holds the state of one run. All methods are safe for concurrent
// use; each one reads and writes the run state under a single lock.
type Engine struct {
	exercises repository.ExerciseRepository
	sessions  repository.SessionRepository
	history   repository.HistoryRepository
	clock     func() time.Time

	mu       sync.Mutex
	session  *domain.Session
	snapshot []domain.Exercise
	index    int
	running  bool
	paused   bool
	// attemptStart is when the current exercise became current; exerciseStart
	// is the timing anchor moved forward by Resume.
	attemptStart  time.Time
	exerciseStart time.Time
	elapsed       time.Duration
	records       []domain.TrainingHistory
}

// NewEngine creates an idle engine. A nil clock defaults to time.Now.
func NewEngine(
	exercises repository.ExerciseRepository,
	sessions repository.SessionRepository,
	history repository.HistoryRepository,
	clock func() time.Time,
) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		exercises: exercises,
		sessions:  sessions,
		history:   history,
		clock:     clock,
	}
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

// Start moves a PLANNED session to IN_PROGRESS and begins the run on its
// first exercise. The exercise list is snapshotted so later catalog edits
// do not affect the run. On success the caller's session reflects the new
// status.
func (e *Engine) Start(ctx context.Context, session *domain.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("%w: a run is already active for session %s", domain.ErrInvalidState, e.session.ID.Hex())
	}
	if session.Status != domain.StatusPlanned {
		return fmt.Errorf("%w: session %s is %s, want %s", domain.ErrInvalidState, session.ID.Hex(), session.Status, domain.StatusPlanned)
	}

	snapshot, err := e.resolve(ctx, session)
	if err != nil {
		return err
	}

	now := e.now()
	started := session.Copy()
	if err := started.Start(now); err != nil {
		return err
	}
	if err := e.sessions.UpdateStatus(ctx, &started, domain.StatusPlanned); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return fmt.Errorf("%w: session %s was started concurrently", domain.ErrInvalidState, session.ID.Hex())
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%w: session %s", domain.ErrNotFound, session.ID.Hex())
		}
		return err
	}

	*session = started.Copy()
	e.session = &started
	e.snapshot = snapshot
	e.index = 0
	e.running = true
	e.paused = false
	e.attemptStart = now
	e.exerciseStart = now
	e.elapsed = 0
	e.records = nil
	return nil
}

func (e *Engine) resolve(ctx context.Context, session *domain.Session) ([]domain.Exercise, error) {
	ordering := make([]domain.SessionExercise, len(session.Exercises))
	copy(ordering, session.Exercises)
	sort.SliceStable(ordering, func(i, j int) bool { return ordering[i].Order < ordering[j].Order })

	snapshot := make([]domain.Exercise, 0, len(ordering))
	for _, se := range ordering {
		exercise, err := e.exercises.GetByID(ctx, se.ExerciseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: exercise %s referenced at position %d", domain.ErrNotFound, se.ExerciseID.Hex(), se.Order)
			}
			return nil, err
		}
		snapshot = append(snapshot, exercise.Clone())
	}
	return snapshot, nil
}

// CompleteCurrent records the current exercise as done and advances to the
// next one. Completing the last exercise finishes the run; the index then
// stays on the last exercise. If finishing fails the record is still
// returned alongside the error, since it has already been persisted.
func (e *Engine) CompleteCurrent(ctx context.Context, notes string) (*domain.TrainingHistory, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || e.index < 0 || e.index >= len(e.snapshot) {
		return nil, domain.ErrNoActiveExercise
	}

	now := e.now()
	record := domain.TrainingHistory{
		SessionID:   e.session.ID,
		ExerciseID:  e.snapshot[e.index].ID,
		StartedAt:   e.attemptStart,
		CompletedAt: now,
		Notes:       notes,
	}
	if _, err := e.history.Append(ctx, &record); err != nil {
		return nil, err
	}
	e.records = append(e.records, record)

	if e.index < len(e.snapshot)-1 {
		e.index++
		e.restartTiming(now)
		return &record, nil
	}
	if err := e.finishLocked(ctx, now); err != nil {
		return &record, err
	}
	return &record, nil
}

// Pause stops the clock on the current exercise. No-op unless running and not paused.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || e.paused {
		return
	}
	e.paused = true
	e.elapsed += e.now().Sub(e.exerciseStart)
}

// Resume restarts the clock; time already spent is kept. No-op unless paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || !e.paused {
		return
	}
	e.paused = false
	e.exerciseStart = e.now()
}

// Skip moves to the next exercise without recording history. It does
// nothing on the last exercise; skipping never finishes a run.
func (e *Engine) Skip() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || e.index >= len(e.snapshot)-1 {
		return
	}
	e.index++
	e.restartTiming(e.now())
}

// Previous moves back one exercise. No-op on the first exercise.
func (e *Engine) Previous() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || e.index == 0 {
		return
	}
	e.index--
	e.restartTiming(e.now())
}

func (e *Engine) restartTiming(now time.Time) {
	e.attemptStart = now
	e.exerciseStart = now
	e.elapsed = 0
}

// Finish completes the session and stops the run.
func (e *Engine) Finish(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return fmt.Errorf("%w: no run has been started", domain.ErrInvalidState)
	}
	return e.finishLocked(ctx, e.now())
}

func (e *Engine) finishLocked(ctx context.Context, now time.Time) error {
	completed := e.session.Copy()
	if err := completed.Complete(now); err != nil {
		return err
	}
	if err := e.sessions.UpdateStatus(ctx, &completed, domain.StatusInProgress); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return fmt.Errorf("%w: session %s is no longer in progress", domain.ErrInvalidState, completed.ID.Hex())
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%w: session %s", domain.ErrNotFound, completed.ID.Hex())
		}
		return err
	}
	e.session = &completed
	e.running = false
	e.paused = false
	return nil
}

// Reset discards all run state. The persisted session status is untouched.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session = nil
	e.snapshot = nil
	e.index = 0
	e.running = false
	e.paused = false
	e.attemptStart = time.Time{}
	e.exerciseStart = time.Time{}
	e.elapsed = 0
	e.records = nil
}

// ProgressPercent is round(100 * index / total), 0 for an empty run.
func (e *Engine) ProgressPercent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progressLocked()
}

func (e *Engine) progressLocked() int {
	if len(e.snapshot) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(e.index) / float64(len(e.snapshot))))
}

// Elapsed is the time spent on the current exercise, excluding pauses.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsedLocked()
}

func (e *Engine) elapsedLocked() time.Duration {
	if e.running && !e.paused {
		return e.elapsed + e.now().Sub(e.exerciseStart)
	}
	return e.elapsed
}

// History returns the records produced by this run so far.
func (e *Engine) History() []domain.TrainingHistory {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.TrainingHistory(nil), e.records...)
}

// RunState is a read-only view of a run.
type RunState struct {
	Session         *domain.Session
	CurrentIndex    int
	TotalExercises  int
	Current         *domain.Exercise
	Running         bool
	Paused          bool
	Elapsed         time.Duration
	ProgressPercent int
	Remaining       int
	History         []domain.TrainingHistory
}

// State returns a snapshot of the run.
func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := RunState{
		CurrentIndex:    e.index,
		TotalExercises:  len(e.snapshot),
		Running:         e.running,
		Paused:          e.paused,
		Elapsed:         e.elapsedLocked(),
		ProgressPercent: e.progressLocked(),
		Remaining:       len(e.snapshot) - e.index,
		History:         append([]domain.TrainingHistory(nil), e.records...),
	}
	if e.session != nil {
		s := e.session.Copy()
		state.Session = &s
	}
	if e.index >= 0 && e.index < len(e.snapshot) {
		current := e.snapshot[e.index].Clone()
		state.Current = &current
	}
	return state
}
