package api

import (
	"alcyxob/tt-trainer/internal/repository/sqlite"
	"alcyxob/tt-trainer/internal/service"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	exerciseRepo := sqlite.NewExerciseRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)
	historyRepo := sqlite.NewHistoryRepository(db)

	builder := service.NewSessionBuilder(exerciseRepo, false, nil)
	exerciseService := service.NewExerciseService(exerciseRepo, sessionRepo, historyRepo)
	sessionService := service.NewSessionService(sessionRepo, builder, nil)
	trainingService := service.NewTrainingService(sessionService, exerciseRepo, sessionRepo, historyRepo, nil, 0, nil)

	router := gin.New()
	SetupRoutes(router, exerciseService, sessionService, trainingService)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, want, w.Body.String())
	}
}

func exerciseBody(title string) map[string]any {
	return map[string]any{
		"title":       title,
		"phase":       "REGULARITY",
		"difficulty":  "BEGINNER",
		"duration":    180,
		"repetitions": 2,
		"shots": []map[string]any{{
			"startPosition": map[string]float64{"x": 0.25, "y": 0},
			"endPosition":   map[string]float64{"x": 0.75, "y": 1},
			"type":          "BACKHAND",
			"spin":          "BACKSPIN",
			"speed":         "SLOW",
			"playerSide":    "PLAYER",
		}},
	}
}

func createExercise(t *testing.T, router *gin.Engine, title string) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/v1/exercises", exerciseBody(title))
	expectStatus(t, w, http.StatusCreated)
	return decode[ExerciseResponse](t, w).ID
}

func TestHealthAndRequestID(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/health", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[map[string]any](t, w)["status"]; got != "ok" {
		t.Errorf("status = %v, want ok", got)
	}
	if w.Header().Get(HeaderRequestID) == "" {
		t.Error("missing request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "6f1c54f4-4c57-4c3e-8a5f-1d4f0c8a9b10")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "6f1c54f4-4c57-4c3e-8a5f-1d4f0c8a9b10" {
		t.Errorf("request id = %q, want the incoming one", got)
	}
}

func TestExerciseValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	bad := exerciseBody("Bloc")
	bad["phase"] = "COOL_DOWN"
	expectStatus(t, do(t, router, http.MethodPost, "/api/v1/exercises", bad), http.StatusBadRequest)

	offTable := exerciseBody("Bloc")
	offTable["shots"] = []map[string]any{{
		"startPosition": map[string]float64{"x": 1.5, "y": 0},
		"endPosition":   map[string]float64{"x": 0.5, "y": 0.5},
		"type":          "BLOCK", "spin": "NEUTRAL", "speed": "FAST", "playerSide": "OPPONENT",
	}}
	expectStatus(t, do(t, router, http.MethodPost, "/api/v1/exercises", offTable), http.StatusBadRequest)

	expectStatus(t, do(t, router, http.MethodGet, "/api/v1/exercises?difficulty=EASY", nil), http.StatusBadRequest)
	expectStatus(t, do(t, router, http.MethodGet, "/api/v1/exercises/not-an-id", nil), http.StatusBadRequest)
	expectStatus(t, do(t, router, http.MethodGet, "/api/v1/exercises/"+primitive.NewObjectID().Hex(), nil), http.StatusNotFound)
}

func TestSessionAndRunOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	a := createExercise(t, router, "A")
	b := createExercise(t, router, "B")
	c := createExercise(t, router, "C")

	w := do(t, router, http.MethodPost, "/api/v1/sessions", map[string]any{
		"title":             "Mardi soir",
		"scheduledDate":     "2026-04-07T19:00:00Z",
		"estimatedDuration": 60,
		"exerciseIds":       []string{a, b, c},
	})
	expectStatus(t, w, http.StatusCreated)
	session := decode[SessionResponse](t, w)
	if session.Status != "PLANNED" || len(session.Exercises) != 3 || session.Exercises[2].Order != 3 {
		t.Fatalf("session = %+v", session)
	}
	base := "/api/v1/training/" + session.ID

	expectStatus(t, do(t, router, http.MethodGet, base, nil), http.StatusNotFound)
	expectStatus(t, do(t, router, http.MethodPost, base+"/complete-exercise", nil), http.StatusNotFound)

	w = do(t, router, http.MethodPost, base+"/start", nil)
	expectStatus(t, w, http.StatusCreated)
	state := decode[RunStateResponse](t, w)
	if state.CurrentExercise == nil || state.CurrentExercise.ID != a || !state.Running {
		t.Fatalf("state after start = %+v", state)
	}
	expectStatus(t, do(t, router, http.MethodPost, base+"/start", nil), http.StatusConflict)

	w = do(t, router, http.MethodPost, base+"/complete-exercise", map[string]string{"notes": "régulier"})
	expectStatus(t, w, http.StatusOK)
	done := decode[CompleteExerciseResponse](t, w)
	if done.Record.ExerciseID != a || done.Record.Notes != "régulier" || done.State.CurrentIndex != 1 {
		t.Fatalf("complete A = %+v", done)
	}

	expectStatus(t, do(t, router, http.MethodPost, base+"/pause", nil), http.StatusOK)
	w = do(t, router, http.MethodPost, base+"/resume", nil)
	expectStatus(t, w, http.StatusOK)
	if decode[RunStateResponse](t, w).Paused {
		t.Error("still paused after resume")
	}

	w = do(t, router, http.MethodPost, base+"/skip", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[RunStateResponse](t, w).ProgressPercent; got != 67 {
		t.Errorf("progress after skip = %d, want 67", got)
	}

	w = do(t, router, http.MethodPost, base+"/complete-exercise", nil)
	expectStatus(t, w, http.StatusOK)
	done = decode[CompleteExerciseResponse](t, w)
	if done.State.Running || done.State.Session == nil || done.State.Session.Status != "COMPLETED" {
		t.Fatalf("state after last = %+v", done.State)
	}
	expectStatus(t, do(t, router, http.MethodPost, base+"/complete-exercise", nil), http.StatusConflict)

	w = do(t, router, http.MethodGet, base+"/history", nil)
	expectStatus(t, w, http.StatusOK)
	history := decode[[]HistoryResponse](t, w)
	if len(history) != 2 || history[0].ExerciseID != a || history[1].ExerciseID != c {
		t.Errorf("history = %+v", history)
	}

	expectStatus(t, do(t, router, http.MethodPost, base+"/cancel", nil), http.StatusConflict)
	expectStatus(t, do(t, router, http.MethodPost, base+"/report", nil), http.StatusServiceUnavailable)

	expectStatus(t, do(t, router, http.MethodDelete, "/api/v1/exercises/"+a, nil), http.StatusConflict)
	expectStatus(t, do(t, router, http.MethodPut, "/api/v1/exercises/"+a, exerciseBody("A2")), http.StatusConflict)

	w = do(t, router, http.MethodPost, "/api/v1/sessions/"+session.ID+"/duplicate", map[string]string{"title": "Mardi bis"})
	expectStatus(t, w, http.StatusCreated)
	clone := decode[SessionResponse](t, w)
	if clone.Status != "PLANNED" || clone.Title != "Mardi bis" || clone.CompletedAt != nil || len(clone.Exercises) != 3 {
		t.Errorf("clone = %+v", clone)
	}
}

func TestReorderAndCancelOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	a := createExercise(t, router, "A")
	b := createExercise(t, router, "B")

	w := do(t, router, http.MethodPost, "/api/v1/sessions", map[string]any{
		"title":       "Jeudi",
		"exerciseIds": []string{a, b, a},
	})
	expectStatus(t, w, http.StatusCreated)
	id := decode[SessionResponse](t, w).ID

	w = do(t, router, http.MethodPut, "/api/v1/sessions/"+id+"/exercises", map[string]any{"exerciseIds": []string{b, a}})
	expectStatus(t, w, http.StatusOK)
	reordered := decode[SessionResponse](t, w)
	if len(reordered.Exercises) != 2 || reordered.Exercises[0].ExerciseID != b {
		t.Errorf("reordered = %+v", reordered.Exercises)
	}

	foreign := primitive.NewObjectID().Hex()
	expectStatus(t, do(t, router, http.MethodPut, "/api/v1/sessions/"+id+"/exercises", map[string]any{"exerciseIds": []string{foreign}}), http.StatusBadRequest)
	expectStatus(t, do(t, router, http.MethodPost, "/api/v1/sessions", map[string]any{"title": "Vide"}), http.StatusBadRequest)

	w = do(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/cancel", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[SessionResponse](t, w).Status; got != "CANCELLED" {
		t.Errorf("status = %s, want CANCELLED", got)
	}
	expectStatus(t, do(t, router, http.MethodPost, "/api/v1/training/"+id+"/start", nil), http.StatusConflict)

	w = do(t, router, http.MethodGet, "/api/v1/sessions?status=CANCELLED", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[[]SessionResponse](t, w); len(got) != 1 || got[0].ID != id {
		t.Errorf("cancelled sessions = %+v", got)
	}
	expectStatus(t, do(t, router, http.MethodGet, "/api/v1/sessions?startDate=yesterday", nil), http.StatusBadRequest)

	expectStatus(t, do(t, router, http.MethodDelete, "/api/v1/sessions/"+id, nil), http.StatusNoContent)
	expectStatus(t, do(t, router, http.MethodGet, "/api/v1/sessions/"+id, nil), http.StatusNotFound)
}
