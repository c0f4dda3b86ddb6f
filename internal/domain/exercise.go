// internal/domain/exercise.go
package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Phase is the pedagogical category of an exercise.
type Phase string

const (
	PhaseWarmUp         Phase = "WARM_UP"
	PhaseRegularity     Phase = "REGULARITY"
	PhaseUncertainty    Phase = "UNCERTAINTY"
	PhaseMatchSituation Phase = "MATCH_SITUATION"
)

// Difficulty grades how demanding a drill is.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "BEGINNER"
	DifficultyIntermediate Difficulty = "INTERMEDIATE"
	DifficultyAdvanced     Difficulty = "ADVANCED"
	DifficultyExpert       Difficulty = "EXPERT"
)

type ShotType string

const (
	ShotForehand ShotType = "FOREHAND"
	ShotBackhand ShotType = "BACKHAND"
	ShotService  ShotType = "SERVICE"
	ShotPush     ShotType = "PUSH"
	ShotFlick    ShotType = "FLICK"
	ShotChop     ShotType = "CHOP"
	ShotBlock    ShotType = "BLOCK"
	ShotSmash    ShotType = "SMASH"
	ShotLob      ShotType = "LOB"
)

type SpinType string

const (
	SpinTopspin       SpinType = "TOPSPIN"
	SpinHeavyTopspin  SpinType = "HEAVY_TOPSPIN"
	SpinBackspin      SpinType = "BACKSPIN"
	SpinHeavyBackspin SpinType = "HEAVY_BACKSPIN"
	SpinSidespin      SpinType = "SIDESPIN"
	SpinNeutral       SpinType = "NEUTRAL"
	SpinMixed         SpinType = "MIXED"
)

type Speed string

const (
	SpeedSlow     Speed = "SLOW"
	SpeedMedium   Speed = "MEDIUM"
	SpeedFast     Speed = "FAST"
	SpeedVeryFast Speed = "VERY_FAST"
	SpeedVariable Speed = "VARIABLE"
)

// Side says which player hits the shot.
type Side string

const (
	SidePlayer   Side = "PLAYER"
	SideOpponent Side = "OPPONENT"
)

// Valid reports whether p is one of the known phase tokens.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWarmUp, PhaseRegularity, PhaseUncertainty, PhaseMatchSituation:
		return true
	}
	return false
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert:
		return true
	}
	return false
}

func (t ShotType) Valid() bool {
	switch t {
	case ShotForehand, ShotBackhand, ShotService, ShotPush, ShotFlick,
		ShotChop, ShotBlock, ShotSmash, ShotLob:
		return true
	}
	return false
}

func (s SpinType) Valid() bool {
	switch s {
	case SpinTopspin, SpinHeavyTopspin, SpinBackspin, SpinHeavyBackspin,
		SpinSidespin, SpinNeutral, SpinMixed:
		return true
	}
	return false
}

func (s Speed) Valid() bool {
	switch s {
	case SpeedSlow, SpeedMedium, SpeedFast, SpeedVeryFast, SpeedVariable:
		return true
	}
	return false
}

func (s Side) Valid() bool {
	return s == SidePlayer || s == SideOpponent
}

// Position is a normalized point on the table, both axes in [0,1].
type Position struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
}

func (p Position) valid() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// Shot is one ball trajectory in an exercise's choreography.
type Shot struct {
	ID            string   `bson:"id,omitempty" json:"id,omitempty"`
	StartPosition Position `bson:"startPosition" json:"startPosition"`
	EndPosition   Position `bson:"endPosition" json:"endPosition"`
	Type          ShotType `bson:"type" json:"type"`
	Spin          SpinType `bson:"spin" json:"spin"`
	Speed         Speed    `bson:"speed" json:"speed"`
	PlayerSide    Side     `bson:"playerSide" json:"playerSide"`
}

// Validate checks coordinates and enum tokens.
func (s Shot) Validate() error {
	if !s.StartPosition.valid() || !s.EndPosition.valid() {
		return fmt.Errorf("%w: shot positions must lie within [0,1]x[0,1]", ErrValidation)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: unknown shot type %q", ErrValidation, s.Type)
	}
	if !s.Spin.Valid() {
		return fmt.Errorf("%w: unknown spin %q", ErrValidation, s.Spin)
	}
	if !s.Speed.Valid() {
		return fmt.Errorf("%w: unknown speed %q", ErrValidation, s.Speed)
	}
	if !s.PlayerSide.Valid() {
		return fmt.Errorf("%w: unknown player side %q", ErrValidation, s.PlayerSide)
	}
	return nil
}

// Exercise represents a single drill definition in the catalog.
type Exercise struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Phase       Phase              `bson:"phase" json:"phase"`
	Difficulty  Difficulty         `bson:"difficulty" json:"difficulty"`
	Duration    int                `bson:"duration" json:"duration"` // seconds
	Repetitions int                `bson:"repetitions" json:"repetitions"`
	Shots       []Shot             `bson:"shots" json:"shots"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the editable fields of an exercise.
func (e *Exercise) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("%w: exercise title is required", ErrValidation)
	}
	if !e.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrValidation, e.Phase)
	}
	if !e.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrValidation, e.Difficulty)
	}
	if e.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if e.Repetitions <= 0 {
		return fmt.Errorf("%w: repetitions must be positive", ErrValidation)
	}
	for i, shot := range e.Shots {
		if err := shot.Validate(); err != nil {
			return fmt.Errorf("shot %d: %w", i+1, err)
		}
	}
	return nil
}

// Clone returns a deep copy so run snapshots are not affected by later edits.
func (e Exercise) Clone() Exercise {
	if e.Shots != nil {
		shots := make([]Shot, len(e.Shots))
		copy(shots, e.Shots)
		e.Shots = shots
	}
	return e
}
