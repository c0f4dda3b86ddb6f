// internal/domain/session.go
package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus type for the session lifecycle
type SessionStatus string

const (
	StatusPlanned    SessionStatus = "PLANNED"
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusCompleted  SessionStatus = "COMPLETED"
	StatusCancelled  SessionStatus = "CANCELLED"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// SessionExercise places an exercise at a 1-based position within a session.
type SessionExercise struct {
	ExerciseID primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Order      int                `bson:"order" json:"order"`
}

// Session is a scheduled, ordered composition of exercises.
type Session struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title             string             `bson:"title" json:"title"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	ScheduledDate     time.Time          `bson:"scheduledDate" json:"scheduledDate"`
	EstimatedDuration int                `bson:"estimatedDuration" json:"estimatedDuration"` // minutes
	Status            SessionStatus      `bson:"status" json:"status"`
	CompletedAt       *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Exercises         []SessionExercise  `bson:"exercises" json:"exercises"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ExerciseIDs returns the referenced exercise ids in execution order.
func (s *Session) ExerciseIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(s.Exercises))
	for i, se := range s.Exercises {
		ids[i] = se.ExerciseID
	}
	return ids
}

// Contains reports whether the session references the exercise at least once.
func (s *Session) Contains(exerciseID primitive.ObjectID) bool {
	for _, se := range s.Exercises {
		if se.ExerciseID == exerciseID {
			return true
		}
	}
	return false
}

// Copy returns a deep copy of the session.
func (s Session) Copy() Session {
	if s.Exercises != nil {
		exercises := make([]SessionExercise, len(s.Exercises))
		copy(exercises, s.Exercises)
		s.Exercises = exercises
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	return s
}

// RankExercises assigns a dense 1..N order following the given sequence.
func RankExercises(ids []primitive.ObjectID) []SessionExercise {
	ranked := make([]SessionExercise, len(ids))
	for i, id := range ids {
		ranked[i] = SessionExercise{ExerciseID: id, Order: i + 1}
	}
	return ranked
}

// ValidateOrdering checks that order values form a permutation of 1..N.
func ValidateOrdering(exercises []SessionExercise) error {
	seen := make([]bool, len(exercises)+1)
	for _, se := range exercises {
		if se.Order < 1 || se.Order > len(exercises) {
			return fmt.Errorf("%w: order %d outside 1..%d", ErrValidation, se.Order, len(exercises))
		}
		if seen[se.Order] {
			return fmt.Errorf("%w: duplicate order %d", ErrValidation, se.Order)
		}
		seen[se.Order] = true
	}
	return nil
}
