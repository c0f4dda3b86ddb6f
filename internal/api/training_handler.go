package api

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/service"
	"alcyxob/tt-trainer/internal/training"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrainingHandler serves the live run of a session.
type TrainingHandler struct {
	trainingService service.TrainingService
}

// NewTrainingHandler creates a new TrainingHandler.
func NewTrainingHandler(trainingService service.TrainingService) *TrainingHandler {
	return &TrainingHandler{trainingService: trainingService}
}

// --- DTOs ---

type CompleteExerciseRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

type HistoryResponse struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"sessionId"`
	ExerciseID      string    `json:"exerciseId"`
	StartedAt       time.Time `json:"startedAt"`
	CompletedAt     time.Time `json:"completedAt"`
	DurationSeconds float64   `json:"durationSeconds"`
	Notes           string    `json:"notes,omitempty"`
}

func MapHistoryToResponse(h domain.TrainingHistory) HistoryResponse {
	return HistoryResponse{
		ID:              h.ID.Hex(),
		SessionID:       h.SessionID.Hex(),
		ExerciseID:      h.ExerciseID.Hex(),
		StartedAt:       h.StartedAt,
		CompletedAt:     h.CompletedAt,
		DurationSeconds: h.Duration().Seconds(),
		Notes:           h.Notes,
	}
}

func MapHistoriesToResponse(records []domain.TrainingHistory) []HistoryResponse {
	responses := make([]HistoryResponse, len(records))
	for i, h := range records {
		responses[i] = MapHistoryToResponse(h)
	}
	return responses
}

// RunStateResponse is the DTO for the state of a live run.
type RunStateResponse struct {
	Session         *SessionResponse  `json:"session"`
	CurrentIndex    int               `json:"currentIndex"`
	TotalExercises  int               `json:"totalExercises"`
	CurrentExercise *ExerciseResponse `json:"currentExercise,omitempty"`
	Running         bool              `json:"running"`
	Paused          bool              `json:"paused"`
	ElapsedSeconds  float64           `json:"elapsedSeconds"`
	ProgressPercent int               `json:"progressPercent"`
	Remaining       int               `json:"remaining"`
	History         []HistoryResponse `json:"history"`
}

func MapRunStateToResponse(state training.RunState) RunStateResponse {
	resp := RunStateResponse{
		CurrentIndex:    state.CurrentIndex,
		TotalExercises:  state.TotalExercises,
		Running:         state.Running,
		Paused:          state.Paused,
		ElapsedSeconds:  state.Elapsed.Seconds(),
		ProgressPercent: state.ProgressPercent,
		Remaining:       state.Remaining,
		History:         MapHistoriesToResponse(state.History),
	}
	if state.Session != nil {
		session := MapSessionToResponse(state.Session)
		resp.Session = &session
	}
	if state.Current != nil {
		current := MapExerciseToResponse(state.Current)
		resp.CurrentExercise = &current
	}
	return resp
}

type CompleteExerciseResponse struct {
	Record HistoryResponse  `json:"record"`
	State  RunStateResponse `json:"state"`
}

// --- Handler Methods ---

// runStateOp adapts a service call returning the run state to a handler.
func (h *TrainingHandler) runStateOp(status int, op func(context.Context, primitive.ObjectID) (training.RunState, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := objectIDParam(c, "sessionId")
		if !ok {
			return
		}
		state, err := op(c.Request.Context(), sessionID)
		if err != nil {
			respondWithServiceError(c, err)
			return
		}
		c.JSON(status, MapRunStateToResponse(state))
	}
}

// StartTraining godoc
// @Summary Start a run of a planned session
// @Tags Training
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 201 {object} RunStateResponse
// @Failure 409 {object} gin.H "Session is not planned or already running"
// @Router /training/{sessionId}/start [post]
func (h *TrainingHandler) StartTraining(c *gin.Context) {
	h.runStateOp(http.StatusCreated, h.trainingService.Start)(c)
}

// GetState godoc
// @Summary Get the state of the run
// @Tags Training
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} RunStateResponse
// @Failure 404 {object} gin.H "No run for this session"
// @Router /training/{sessionId} [get]
func (h *TrainingHandler) GetState(c *gin.Context) {
	h.runStateOp(http.StatusOK, h.trainingService.State)(c)
}

// Pause, Resume, Skip, Previous and Finish all answer with the run state.
func (h *TrainingHandler) Pause(c *gin.Context) {
	h.runStateOp(http.StatusOK, h.trainingService.Pause)(c)
}

func (h *TrainingHandler) Resume(c *gin.Context) {
	h.runStateOp(http.StatusOK, h.trainingService.Resume)(c)
}

func (h *TrainingHandler) Skip(c *gin.Context) {
	h.runStateOp(http.StatusOK, h.trainingService.Skip)(c)
}

func (h *TrainingHandler) Previous(c *gin.Context) {
	h.runStateOp(http.StatusOK, h.trainingService.Previous)(c)
}

func (h *TrainingHandler) Finish(c *gin.Context) {
	h.runStateOp(http.StatusOK, h.trainingService.Finish)(c)
}

// CompleteExercise godoc
// @Summary Confirm the current exercise and advance
// @Tags Training
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param body body CompleteExerciseRequest false "Optional notes"
// @Success 200 {object} CompleteExerciseResponse
// @Failure 409 {object} gin.H "No active exercise"
// @Router /training/{sessionId}/complete-exercise [post]
func (h *TrainingHandler) CompleteExercise(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "sessionId")
	if !ok {
		return
	}
	var req CompleteExerciseRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	done, err := h.trainingService.CompleteExercise(c.Request.Context(), sessionID, req.Notes)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CompleteExerciseResponse{
		Record: MapHistoryToResponse(done.Record),
		State:  MapRunStateToResponse(done.State),
	})
}

// Reset godoc
// @Summary Discard the run without touching the session status
// @Tags Training
// @Param sessionId path string true "Session ID"
// @Success 204
// @Router /training/{sessionId}/reset [post]
func (h *TrainingHandler) Reset(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "sessionId")
	if !ok {
		return
	}
	if err := h.trainingService.Reset(c.Request.Context(), sessionID); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Cancel godoc
// @Summary Discard the run and cancel the session
// @Tags Training
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Router /training/{sessionId}/cancel [post]
func (h *TrainingHandler) Cancel(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "sessionId")
	if !ok {
		return
	}
	session, err := h.trainingService.Cancel(c.Request.Context(), sessionID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// GetHistory godoc
// @Summary List the stored history records of a session
// @Tags Training
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {array} HistoryResponse
// @Router /training/{sessionId}/history [get]
func (h *TrainingHandler) GetHistory(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "sessionId")
	if !ok {
		return
	}
	records, err := h.trainingService.History(c.Request.Context(), sessionID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapHistoriesToResponse(records))
}

// ExportReport godoc
// @Summary Archive a JSON report of the session and return a download URL
// @Tags Training
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 201 {object} gin.H "Object key, download URL and expiry"
// @Failure 503 {object} gin.H "Report archive not configured"
// @Router /training/{sessionId}/report [post]
func (h *TrainingHandler) ExportReport(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "sessionId")
	if !ok {
		return
	}
	export, err := h.trainingService.ExportReport(c.Request.Context(), sessionID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"objectKey": export.ObjectKey,
		"url":       export.URL,
		"expiresAt": export.ExpiresAt,
		"history":   MapHistoriesToResponse(export.Report.History),
	})
}
