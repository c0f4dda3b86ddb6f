package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RunReport summarizes a session run for archiving. The document itself
// lives in object storage under ObjectKey.
type RunReport struct {
	SessionID   primitive.ObjectID `json:"sessionId"`
	Title       string             `json:"title"`
	Status      SessionStatus      `json:"status"`
	StartedAt   *time.Time         `json:"startedAt,omitempty"` // earliest history startedAt
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
	History     []TrainingHistory  `json:"history"`
	GeneratedAt time.Time          `json:"generatedAt"`
	ObjectKey   string             `json:"-"`
}
