package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrainingHistory confirms that an exercise was completed during a run.
// Records are append-only.
type TrainingHistory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID   primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	ExerciseID  primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	StartedAt   time.Time          `bson:"startedAt" json:"startedAt"`
	CompletedAt time.Time          `bson:"completedAt" json:"completedAt"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Duration is the wall time between the start of the attempt and its confirmation.
func (h TrainingHistory) Duration() time.Duration {
	return h.CompletedAt.Sub(h.StartedAt)
}
