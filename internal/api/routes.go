package api

import (
	"alcyxob/tt-trainer/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	exerciseService service.ExerciseService,
	sessionService service.SessionService,
	trainingService service.TrainingService,
) {
	exerciseHandler := NewExerciseHandler(exerciseService)
	sessionHandler := NewSessionHandler(sessionService, trainingService)
	trainingHandler := NewTrainingHandler(trainingService)

	router.Use(RequestIDMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	apiV1 := router.Group("/api/v1")
	{
		// --- Exercise Catalog ---
		exerciseGroup := apiV1.Group("/exercises")
		{
			exerciseGroup.POST("", exerciseHandler.CreateExercise)
			exerciseGroup.GET("", exerciseHandler.ListExercises)
			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
			exerciseGroup.PUT("/:id", exerciseHandler.UpdateExercise)
			exerciseGroup.DELETE("/:id", exerciseHandler.DeleteExercise)
		}

		// --- Sessions ---
		sessionGroup := apiV1.Group("/sessions")
		{
			sessionGroup.POST("", sessionHandler.CreateSession)
			sessionGroup.GET("", sessionHandler.ListSessions)
			sessionGroup.GET("/:id", sessionHandler.GetSession)
			sessionGroup.PUT("/:id", sessionHandler.UpdateSession)
			sessionGroup.DELETE("/:id", sessionHandler.DeleteSession)
			// PUT /api/v1/sessions/{id}/exercises replaces the whole ordering
			sessionGroup.PUT("/:id/exercises", sessionHandler.ReorderExercises)
			sessionGroup.POST("/:id/duplicate", sessionHandler.DuplicateSession)
			sessionGroup.POST("/:id/cancel", sessionHandler.CancelSession)
		}

		// --- Live Runs ---
		trainingGroup := apiV1.Group("/training/:sessionId")
		{
			trainingGroup.GET("", trainingHandler.GetState)
			trainingGroup.POST("/start", trainingHandler.StartTraining)
			trainingGroup.POST("/complete-exercise", trainingHandler.CompleteExercise)
			trainingGroup.POST("/pause", trainingHandler.Pause)
			trainingGroup.POST("/resume", trainingHandler.Resume)
			trainingGroup.POST("/skip", trainingHandler.Skip)
			trainingGroup.POST("/previous", trainingHandler.Previous)
			trainingGroup.POST("/finish", trainingHandler.Finish)
			trainingGroup.POST("/reset", trainingHandler.Reset)
			trainingGroup.POST("/cancel", trainingHandler.Cancel)
			trainingGroup.GET("/history", trainingHandler.GetHistory)
			trainingGroup.POST("/report", trainingHandler.ExportReport)
		}
	}
}
