package service

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"alcyxob/tt-trainer/internal/repository/sqlite"
	"alcyxob/tt-trainer/internal/storage"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type memArchive struct {
	reports map[string]domain.RunReport
}

func (m *memArchive) PutReport(_ context.Context, report *domain.RunReport) error {
	m.reports[report.ObjectKey] = *report
	return nil
}

func (m *memArchive) PresignedReportURL(_ context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://archive.test/" + objectKey + "?expires=" + expires.String(), nil
}

type services struct {
	clock     *testClock
	exercises ExerciseService
	sessions  SessionService
	training  TrainingService
	archive   *memArchive
	sessionDB repository.SessionRepository
}

func newServices(t *testing.T) *services {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	exerciseRepo := sqlite.NewExerciseRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)
	historyRepo := sqlite.NewHistoryRepository(db)

	s := &services{
		clock:     &testClock{t: time.Date(2026, 4, 7, 19, 0, 0, 0, time.UTC)},
		archive:   &memArchive{reports: map[string]domain.RunReport{}},
		sessionDB: sessionRepo,
	}
	builder := NewSessionBuilder(exerciseRepo, false, s.clock.Now)
	s.exercises = NewExerciseService(exerciseRepo, sessionRepo, historyRepo)
	s.sessions = NewSessionService(sessionRepo, builder, s.clock.Now)
	s.training = NewTrainingService(s.sessions, exerciseRepo, sessionRepo, historyRepo, s.archive, 10*time.Minute, s.clock.Now)
	return s
}

func drill(title string) ExerciseInput {
	return ExerciseInput{
		Title:       title,
		Phase:       domain.PhaseRegularity,
		Difficulty:  domain.DifficultyIntermediate,
		Duration:    120,
		Repetitions: 3,
		Shots: []domain.Shot{{
			StartPosition: domain.Position{X: 0.1, Y: 0.1},
			EndPosition:   domain.Position{X: 0.9, Y: 0.9},
			Type:          domain.ShotForehand,
			Spin:          domain.SpinTopspin,
			Speed:         domain.SpeedFast,
			PlayerSide:    domain.SidePlayer,
		}},
	}
}

func (s *services) createExercises(t *testing.T, titles ...string) []primitive.ObjectID {
	t.Helper()
	ids := make([]primitive.ObjectID, len(titles))
	for i, title := range titles {
		e, err := s.exercises.CreateExercise(context.Background(), drill(title))
		if err != nil {
			t.Fatalf("create exercise %q: %v", title, err)
		}
		ids[i] = e.ID
	}
	return ids
}

func (s *services) createSession(t *testing.T, ids ...primitive.ObjectID) *domain.Session {
	t.Helper()
	session, err := s.sessions.CreateSession(context.Background(), SessionInput{
		Title:             "Mardi soir",
		ScheduledDate:     s.clock.Now().Add(time.Hour),
		EstimatedDuration: 90,
		ExerciseIDs:       ids,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func TestExerciseValidation(t *testing.T) {
	s := newServices(t)
	bad := drill("Bloc")
	bad.Shots[0].EndPosition.X = 1.2
	if _, err := s.exercises.CreateExercise(context.Background(), bad); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("out-of-table shot: err = %v, want ErrValidation", err)
	}
	if _, err := s.exercises.ListExercises(context.Background(), repository.ExerciseFilter{Phase: "COOL_DOWN"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown phase filter: err = %v, want ErrValidation", err)
	}
}

func TestDeleteExerciseReferencedBySession(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	ids := s.createExercises(t, "Top spin", "Poussette")
	s.createSession(t, ids[0])

	if err := s.exercises.DeleteExercise(ctx, ids[0]); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("delete referenced: err = %v, want ErrConflict", err)
	}
	detail, err := s.exercises.GetExercise(ctx, ids[0])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.SessionCount != 1 {
		t.Errorf("sessionCount = %d, want 1", detail.SessionCount)
	}

	if err := s.exercises.DeleteExercise(ctx, ids[1]); err != nil {
		t.Fatalf("delete unreferenced: %v", err)
	}
	if err := s.exercises.DeleteExercise(ctx, ids[1]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateExerciseAfterHistory(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	ids := s.createExercises(t, "Top spin", "Poussette")
	session := s.createSession(t, ids...)

	if _, err := s.exercises.UpdateExercise(ctx, ids[0], drill("Top spin long")); err != nil {
		t.Fatalf("update before history: %v", err)
	}
	if _, err := s.training.Start(ctx, session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.training.CompleteExercise(ctx, session.ID, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := s.exercises.UpdateExercise(ctx, ids[0], drill("Top spin court")); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("update after history: err = %v, want ErrConflict", err)
	}
	if _, err := s.exercises.UpdateExercise(ctx, ids[1], drill("Poussette longue")); err != nil {
		t.Errorf("update exercise without history: %v", err)
	}
}

func TestSessionMetadataAndReorder(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	ids := s.createExercises(t, "A", "B", "C")
	session := s.createSession(t, ids...)

	title := "Mardi tard"
	updated, err := s.sessions.UpdateSession(ctx, session.ID, SessionUpdate{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title || len(updated.Exercises) != 3 || updated.EstimatedDuration != 90 {
		t.Errorf("updated = %+v", updated)
	}

	reordered, err := s.sessions.ReorderExercises(ctx, session.ID, []primitive.ObjectID{ids[2], ids[0]})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	stored, err := s.sessions.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := stored.ExerciseIDs(); len(got) != 2 || got[0] != ids[2] || got[1] != ids[0] {
		t.Errorf("stored ordering = %v, reorder returned %v", got, reordered.ExerciseIDs())
	}
	if stored.Title != title {
		t.Errorf("reorder lost title: %q", stored.Title)
	}

	if _, err := s.training.Start(ctx, session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.sessions.ReorderExercises(ctx, session.ID, []primitive.ObjectID{ids[0]}); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("reorder in progress: err = %v, want ErrInvalidState", err)
	}
	if err := s.sessions.DeleteSession(ctx, session.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("delete in progress: err = %v, want ErrInvalidState", err)
	}
}

func TestListSessionsValidation(t *testing.T) {
	s := newServices(t)
	from := s.clock.Now()
	to := from.Add(-time.Hour)
	if _, err := s.sessions.ListSessions(context.Background(), repository.SessionFilter{From: &from, To: &to}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("inverted range: err = %v, want ErrValidation", err)
	}
	if _, err := s.sessions.ListSessions(context.Background(), repository.SessionFilter{Status: "DONE"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown status: err = %v, want ErrValidation", err)
	}
}

func TestTrainingRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	ids := s.createExercises(t, "A", "B", "C")
	session := s.createSession(t, ids...)

	state, err := s.training.Start(ctx, session.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if state.CurrentIndex != 0 || state.Current == nil || state.Current.ID != ids[0] {
		t.Fatalf("state after start = %+v", state)
	}
	if _, err := s.training.Start(ctx, session.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second start: err = %v, want ErrInvalidState", err)
	}

	s.clock.Advance(2 * time.Minute)
	done, err := s.training.CompleteExercise(ctx, session.ID, "bien")
	if err != nil {
		t.Fatalf("complete A: %v", err)
	}
	if done.Record.Duration() != 2*time.Minute || done.State.CurrentIndex != 1 {
		t.Errorf("complete A = %+v", done)
	}

	if _, err := s.training.Skip(ctx, session.ID); err != nil {
		t.Fatalf("skip: %v", err)
	}
	s.clock.Advance(time.Minute)
	done, err = s.training.CompleteExercise(ctx, session.ID, "")
	if err != nil {
		t.Fatalf("complete C: %v", err)
	}
	if done.State.Running || done.State.Session.Status != domain.StatusCompleted {
		t.Errorf("state after last = %+v", done.State)
	}

	stored, err := s.sessions.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusCompleted || stored.CompletedAt == nil {
		t.Errorf("stored = %s, completedAt %v", stored.Status, stored.CompletedAt)
	}

	history, err := s.training.History(ctx, session.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ExerciseID != ids[0] || history[1].ExerciseID != ids[2] {
		t.Errorf("history = %+v", history)
	}

	export, err := s.training.ExportReport(ctx, session.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(export.ObjectKey, "reports/"+session.ID.Hex()+"/") {
		t.Errorf("object key = %q", export.ObjectKey)
	}
	archived, ok := s.archive.reports[export.ObjectKey]
	if !ok || len(archived.History) != 2 || archived.Status != domain.StatusCompleted {
		t.Errorf("archived report = %+v", archived)
	}
	if archived.StartedAt == nil || !archived.StartedAt.Equal(history[0].StartedAt) {
		t.Errorf("report startedAt = %v, want %v", archived.StartedAt, history[0].StartedAt)
	}
	if !export.ExpiresAt.Equal(s.clock.Now().Add(10 * time.Minute)) {
		t.Errorf("expiresAt = %v", export.ExpiresAt)
	}

	clone, err := s.sessions.DuplicateSession(ctx, session.ID, CloneOverrides{})
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if clone.Status != domain.StatusPlanned || clone.CompletedAt != nil || clone.ID == session.ID {
		t.Errorf("clone = %+v", clone)
	}
}

func TestCancelDuringRun(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	ids := s.createExercises(t, "A", "B")
	session := s.createSession(t, ids...)

	if _, err := s.training.Start(ctx, session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancelled, err := s.training.Cancel(ctx, session.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
	if _, err := s.training.State(ctx, session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("state after cancel: err = %v, want ErrNotFound", err)
	}
	if _, err := s.training.Cancel(ctx, session.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("second cancel: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := s.training.Start(ctx, session.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("start cancelled: err = %v, want ErrInvalidState", err)
	}
}

func TestRejectedCancelKeepsFinishedRun(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	session := s.createSession(t, s.createExercises(t, "A")...)

	if _, err := s.training.Start(ctx, session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.training.CompleteExercise(ctx, session.ID, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := s.training.Cancel(ctx, session.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancel completed session: err = %v, want ErrInvalidTransition", err)
	}

	state, err := s.training.State(ctx, session.ID)
	if err != nil {
		t.Fatalf("state after rejected cancel: %v", err)
	}
	if state.Session.Status != domain.StatusCompleted || len(state.History) != 1 {
		t.Errorf("state after rejected cancel = %+v", state)
	}
}

func TestEngineRegistry(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	registry := s.training.(*trainingService)
	engines := func() int {
		registry.mu.Lock()
		defer registry.mu.Unlock()
		return len(registry.engines)
	}

	cancelled := s.createSession(t, s.createExercises(t, "A")...)
	if _, err := s.sessions.CancelSession(ctx, cancelled.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.training.Start(ctx, cancelled.ID); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("start cancelled: err = %v, want ErrInvalidState", err)
		}
	}
	if n := engines(); n != 0 {
		t.Errorf("engines after failed starts = %d, want 0", n)
	}

	finished := s.createSession(t, s.createExercises(t, "B")...)
	if _, err := s.training.Start(ctx, finished.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.training.CompleteExercise(ctx, finished.ID, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	s.clock.Advance(finishedRunRetention + time.Minute)
	next := s.createSession(t, s.createExercises(t, "C")...)
	if _, err := s.training.Start(ctx, next.ID); err != nil {
		t.Fatalf("start next: %v", err)
	}
	if _, err := s.training.State(ctx, finished.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("state of expired run: err = %v, want ErrNotFound", err)
	}
	if n := engines(); n != 1 {
		t.Errorf("engines = %d, want 1", n)
	}
}

func TestResetKeepsSessionInProgress(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	session := s.createSession(t, s.createExercises(t, "A")...)

	if _, err := s.training.Start(ctx, session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.training.Reset(ctx, session.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := s.training.Reset(ctx, session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second reset: err = %v, want ErrNotFound", err)
	}
	stored, err := s.sessions.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusInProgress {
		t.Errorf("status after reset = %s, want IN_PROGRESS", stored.Status)
	}
}

func TestTrainingOperationsWithoutRun(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	session := s.createSession(t, s.createExercises(t, "A")...)

	if _, err := s.training.Pause(ctx, session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("pause: err = %v, want ErrNotFound", err)
	}
	if _, err := s.training.CompleteExercise(ctx, session.ID, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("complete: err = %v, want ErrNotFound", err)
	}
	if _, err := s.training.Start(ctx, primitive.NewObjectID()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("start unknown session: err = %v, want ErrNotFound", err)
	}
}

func TestExportWithoutArchive(t *testing.T) {
	s := newServices(t)
	training := NewTrainingService(s.sessions, nil, s.sessionDB, nil, nil, 0, s.clock.Now)
	if _, err := training.ExportReport(context.Background(), primitive.NewObjectID()); !errors.Is(err, storage.ErrArchiveDisabled) {
		t.Errorf("err = %v, want ErrArchiveDisabled", err)
	}
}
