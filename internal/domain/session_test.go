package domain

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRankExercisesIsDense(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	ranked := RankExercises([]primitive.ObjectID{a, b, a})
	if len(ranked) != 3 {
		t.Fatalf("len = %d, want 3", len(ranked))
	}
	for i, se := range ranked {
		if se.Order != i+1 {
			t.Errorf("ranked[%d].Order = %d, want %d", i, se.Order, i+1)
		}
	}
	if err := ValidateOrdering(ranked); err != nil {
		t.Errorf("ValidateOrdering: %v", err)
	}
}

func TestValidateOrderingRejectsGapsAndDuplicates(t *testing.T) {
	id := primitive.NewObjectID()
	cases := map[string][]SessionExercise{
		"gap":       {{ExerciseID: id, Order: 1}, {ExerciseID: id, Order: 3}},
		"duplicate": {{ExerciseID: id, Order: 1}, {ExerciseID: id, Order: 1}},
		"zero":      {{ExerciseID: id, Order: 0}},
	}
	for name, exercises := range cases {
		if err := ValidateOrdering(exercises); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", name, err)
		}
	}
}

func TestSessionCopyIsDeep(t *testing.T) {
	id := primitive.NewObjectID()
	at := fixedNow
	s := Session{Exercises: RankExercises([]primitive.ObjectID{id}), CompletedAt: &at}
	c := s.Copy()
	c.Exercises[0].Order = 9
	*c.CompletedAt = at.Add(1)
	if s.Exercises[0].Order != 1 {
		t.Errorf("original order mutated to %d", s.Exercises[0].Order)
	}
	if !s.CompletedAt.Equal(fixedNow) {
		t.Errorf("original completedAt mutated to %v", s.CompletedAt)
	}
}
