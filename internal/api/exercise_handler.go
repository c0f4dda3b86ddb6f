package api

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"alcyxob/tt-trainer/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// --- DTOs for API (Data Transfer Objects) ---

type PositionRequest struct {
	X float64 `json:"x" binding:"gte=0,lte=1"`
	Y float64 `json:"y" binding:"gte=0,lte=1"`
}

type ShotRequest struct {
	ID            string          `json:"id"`
	StartPosition PositionRequest `json:"startPosition"`
	EndPosition   PositionRequest `json:"endPosition"`
	Type          string          `json:"type" binding:"required,oneof=FOREHAND BACKHAND SERVICE PUSH FLICK CHOP BLOCK SMASH LOB"`
	Spin          string          `json:"spin" binding:"required,oneof=TOPSPIN HEAVY_TOPSPIN BACKSPIN HEAVY_BACKSPIN SIDESPIN NEUTRAL MIXED"`
	Speed         string          `json:"speed" binding:"required,oneof=SLOW MEDIUM FAST VERY_FAST VARIABLE"`
	PlayerSide    string          `json:"playerSide" binding:"required,oneof=PLAYER OPPONENT"`
}

// ExerciseRequest defines the expected JSON for creating or replacing an exercise.
type ExerciseRequest struct {
	Title       string        `json:"title" binding:"required,max=200"`
	Description string        `json:"description" binding:"max=5000"`
	Phase       string        `json:"phase" binding:"required,oneof=WARM_UP REGULARITY UNCERTAINTY MATCH_SITUATION"`
	Difficulty  string        `json:"difficulty" binding:"required,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
	Duration    int           `json:"duration" binding:"required,gt=0"`
	Repetitions int           `json:"repetitions" binding:"required,gt=0"`
	Shots       []ShotRequest `json:"shots" binding:"dive"`
}

func (r ExerciseRequest) toInput() service.ExerciseInput {
	shots := make([]domain.Shot, len(r.Shots))
	for i, s := range r.Shots {
		shots[i] = domain.Shot{
			ID:            s.ID,
			StartPosition: domain.Position{X: s.StartPosition.X, Y: s.StartPosition.Y},
			EndPosition:   domain.Position{X: s.EndPosition.X, Y: s.EndPosition.Y},
			Type:          domain.ShotType(s.Type),
			Spin:          domain.SpinType(s.Spin),
			Speed:         domain.Speed(s.Speed),
			PlayerSide:    domain.Side(s.PlayerSide),
		}
	}
	return service.ExerciseInput{
		Title:       r.Title,
		Description: r.Description,
		Phase:       domain.Phase(r.Phase),
		Difficulty:  domain.Difficulty(r.Difficulty),
		Duration:    r.Duration,
		Repetitions: r.Repetitions,
		Shots:       shots,
	}
}

// ListExercisesQuery holds the optional catalog filters.
type ListExercisesQuery struct {
	Phase      string `form:"phase" binding:"omitempty,oneof=WARM_UP REGULARITY UNCERTAINTY MATCH_SITUATION"`
	Difficulty string `form:"difficulty" binding:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
	Search     string `form:"search"`
}

// ExerciseResponse is the DTO for returning exercise details.
type ExerciseResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Phase        domain.Phase      `json:"phase"`
	Difficulty   domain.Difficulty `json:"difficulty"`
	Duration     int               `json:"duration"`
	Repetitions  int               `json:"repetitions"`
	Shots        []domain.Shot     `json:"shots"`
	SessionCount *int64            `json:"sessionCount,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// MapExerciseToResponse converts a domain.Exercise to ExerciseResponse DTO.
func MapExerciseToResponse(ex *domain.Exercise) ExerciseResponse {
	if ex == nil {
		return ExerciseResponse{}
	}
	shots := ex.Shots
	if shots == nil {
		shots = []domain.Shot{}
	}
	return ExerciseResponse{
		ID:          ex.ID.Hex(),
		Title:       ex.Title,
		Description: ex.Description,
		Phase:       ex.Phase,
		Difficulty:  ex.Difficulty,
		Duration:    ex.Duration,
		Repetitions: ex.Repetitions,
		Shots:       shots,
		CreatedAt:   ex.CreatedAt,
		UpdatedAt:   ex.UpdatedAt,
	}
}

// MapExercisesToResponse converts a slice of domain.Exercise to a slice of ExerciseResponse DTO.
func MapExercisesToResponse(exercises []domain.Exercise) []ExerciseResponse {
	responses := make([]ExerciseResponse, len(exercises))
	for i := range exercises {
		responses[i] = MapExerciseToResponse(&exercises[i])
	}
	return responses
}

// --- Handler Methods ---

// CreateExercise godoc
// @Summary Create a new exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Param exercise body ExerciseRequest true "Exercise details"
// @Success 201 {object} ExerciseResponse
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), req.toInput())
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapExerciseToResponse(exercise))
}

// ListExercises godoc
// @Summary List catalog exercises, newest first
// @Tags Exercises
// @Produce json
// @Param phase query string false "Phase token"
// @Param difficulty query string false "Difficulty token"
// @Param search query string false "Case-insensitive match on title or description"
// @Success 200 {array} ExerciseResponse
// @Router /exercises [get]
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	var q ListExercisesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	exercises, err := h.exerciseService.ListExercises(c.Request.Context(), repository.ExerciseFilter{
		Phase:      domain.Phase(q.Phase),
		Difficulty: domain.Difficulty(q.Difficulty),
		Search:     q.Search,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapExercisesToResponse(exercises))
}

// GetExercise godoc
// @Summary Get one exercise with its session usage count
// @Tags Exercises
// @Produce json
// @Param id path string true "Exercise ID"
// @Success 200 {object} ExerciseResponse
// @Failure 404 {object} gin.H
// @Router /exercises/{id} [get]
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	exerciseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.exerciseService.GetExercise(c.Request.Context(), exerciseID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	resp := MapExerciseToResponse(&detail.Exercise)
	resp.SessionCount = &detail.SessionCount
	c.JSON(http.StatusOK, resp)
}

// UpdateExercise godoc
// @Summary Replace an exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Param id path string true "Exercise ID"
// @Param exercise body ExerciseRequest true "Exercise details"
// @Success 200 {object} ExerciseResponse
// @Failure 409 {object} gin.H "Exercise already used in training history"
// @Router /exercises/{id} [put]
func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	exerciseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	exercise, err := h.exerciseService.UpdateExercise(c.Request.Context(), exerciseID, req.toInput())
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapExerciseToResponse(exercise))
}

// DeleteExercise godoc
// @Summary Delete an exercise no session references
// @Tags Exercises
// @Param id path string true "Exercise ID"
// @Success 204
// @Failure 409 {object} gin.H "Exercise is referenced by sessions"
// @Router /exercises/{id} [delete]
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	exerciseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.exerciseService.DeleteExercise(c.Request.Context(), exerciseID); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
