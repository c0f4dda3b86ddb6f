package api

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"alcyxob/tt-trainer/internal/service"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionHandler serves session composition endpoints.
type SessionHandler struct {
	sessionService  service.SessionService
	trainingService service.TrainingService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService service.SessionService, trainingService service.TrainingService) *SessionHandler {
	return &SessionHandler{
		sessionService:  sessionService,
		trainingService: trainingService,
	}
}

// --- DTOs ---

// CreateSessionRequest lists exercise ids in execution order; an id may repeat.
type CreateSessionRequest struct {
	Title             string    `json:"title" binding:"required,max=200"`
	Description       string    `json:"description" binding:"max=5000"`
	ScheduledDate     time.Time `json:"scheduledDate"`
	EstimatedDuration int       `json:"estimatedDuration" binding:"gte=0"`
	ExerciseIDs       []string  `json:"exerciseIds"`
}

// UpdateSessionRequest changes metadata only; absent fields are kept.
type UpdateSessionRequest struct {
	Title             *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description       *string    `json:"description" binding:"omitempty,max=5000"`
	ScheduledDate     *time.Time `json:"scheduledDate"`
	EstimatedDuration *int       `json:"estimatedDuration" binding:"omitempty,gte=0"`
}

// ReorderExercisesRequest is the complete new ordering.
type ReorderExercisesRequest struct {
	ExerciseIDs []string `json:"exerciseIds"`
}

// DuplicateSessionRequest optionally overrides fields of the copy.
type DuplicateSessionRequest struct {
	Title         *string    `json:"title" binding:"omitempty,min=1,max=200"`
	ScheduledDate *time.Time `json:"scheduledDate"`
}

// ListSessionsQuery holds the optional session filters. Dates are RFC 3339
// timestamps or plain YYYY-MM-DD days.
type ListSessionsQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=PLANNED IN_PROGRESS COMPLETED CANCELLED"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type SessionExerciseResponse struct {
	ExerciseID string `json:"exerciseId"`
	Order      int    `json:"order"`
}

// SessionResponse is the DTO for returning session details.
type SessionResponse struct {
	ID                string                    `json:"id"`
	Title             string                    `json:"title"`
	Description       string                    `json:"description,omitempty"`
	ScheduledDate     time.Time                 `json:"scheduledDate"`
	EstimatedDuration int                       `json:"estimatedDuration"`
	Status            domain.SessionStatus      `json:"status"`
	CompletedAt       *time.Time                `json:"completedAt,omitempty"`
	Exercises         []SessionExerciseResponse `json:"exercises"`
	CreatedAt         time.Time                 `json:"createdAt"`
	UpdatedAt         time.Time                 `json:"updatedAt"`
}

// MapSessionToResponse converts a domain.Session to SessionResponse DTO.
func MapSessionToResponse(s *domain.Session) SessionResponse {
	if s == nil {
		return SessionResponse{}
	}
	exercises := make([]SessionExerciseResponse, len(s.Exercises))
	for i, se := range s.Exercises {
		exercises[i] = SessionExerciseResponse{ExerciseID: se.ExerciseID.Hex(), Order: se.Order}
	}
	return SessionResponse{
		ID:                s.ID.Hex(),
		Title:             s.Title,
		Description:       s.Description,
		ScheduledDate:     s.ScheduledDate,
		EstimatedDuration: s.EstimatedDuration,
		Status:            s.Status,
		CompletedAt:       s.CompletedAt,
		Exercises:         exercises,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func MapSessionsToResponse(sessions []domain.Session) []SessionResponse {
	responses := make([]SessionResponse, len(sessions))
	for i := range sessions {
		responses[i] = MapSessionToResponse(&sessions[i])
	}
	return responses
}

func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

// bindOptionalJSON binds a body that may be absent.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// --- Handler Methods ---

// CreateSession godoc
// @Summary Build a planned session from an ordered list of exercises
// @Tags Sessions
// @Accept json
// @Produce json
// @Param session body CreateSessionRequest true "Session details"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} gin.H "Unknown exercise or empty exercise list"
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	exerciseIDs, err := parseObjectIDs(req.ExerciseIDs)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessionService.CreateSession(c.Request.Context(), service.SessionInput{
		Title:             req.Title,
		Description:       req.Description,
		ScheduledDate:     req.ScheduledDate,
		EstimatedDuration: req.EstimatedDuration,
		ExerciseIDs:       exerciseIDs,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapSessionToResponse(session))
}

// ListSessions godoc
// @Summary List sessions by scheduled date
// @Tags Sessions
// @Produce json
// @Param status query string false "Status token"
// @Param startDate query string false "Earliest scheduled date"
// @Param endDate query string false "Latest scheduled date"
// @Success 200 {array} SessionResponse
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	var q ListSessionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	from, err := parseDateParam(q.StartDate, false)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid startDate format.")
		return
	}
	to, err := parseDateParam(q.EndDate, true)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid endDate format.")
		return
	}

	sessions, err := h.sessionService.ListSessions(c.Request.Context(), repository.SessionFilter{
		Status: domain.SessionStatus(q.Status),
		From:   from,
		To:     to,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionsToResponse(sessions))
}

// GetSession godoc
// @Summary Get one session with its ordering
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	session, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// UpdateSession godoc
// @Summary Update session metadata
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param session body UpdateSessionRequest true "Fields to change"
// @Success 200 {object} SessionResponse
// @Router /sessions/{id} [put]
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	session, err := h.sessionService.UpdateSession(c.Request.Context(), sessionID, service.SessionUpdate{
		Title:             req.Title,
		Description:       req.Description,
		ScheduledDate:     req.ScheduledDate,
		EstimatedDuration: req.EstimatedDuration,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// ReorderExercises godoc
// @Summary Replace the exercise ordering of a planned session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param ordering body ReorderExercisesRequest true "Complete new ordering"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} gin.H "Exercise not part of the session"
// @Failure 409 {object} gin.H "Session is not planned"
// @Router /sessions/{id}/exercises [put]
func (h *SessionHandler) ReorderExercises(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req ReorderExercisesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	exerciseIDs, err := parseObjectIDs(req.ExerciseIDs)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessionService.ReorderExercises(c.Request.Context(), sessionID, exerciseIDs)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// DuplicateSession godoc
// @Summary Copy a session as a new planned session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param overrides body DuplicateSessionRequest false "Title and date of the copy"
// @Success 201 {object} SessionResponse
// @Router /sessions/{id}/duplicate [post]
func (h *SessionHandler) DuplicateSession(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req DuplicateSessionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	clone, err := h.sessionService.DuplicateSession(c.Request.Context(), sessionID, service.CloneOverrides{
		Title:         req.Title,
		ScheduledDate: req.ScheduledDate,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapSessionToResponse(clone))
}

// CancelSession godoc
// @Summary Cancel a planned or running session
// @Description Discards the live run, if any, then cancels the session.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 409 {object} gin.H "Session already completed or cancelled"
// @Router /sessions/{id}/cancel [post]
func (h *SessionHandler) CancelSession(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "id")
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

// DeleteSession godoc
// @Summary Delete a session that is not in progress
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.sessionService.DeleteSession(c.Request.Context(), sessionID); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
