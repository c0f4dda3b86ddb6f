package domain

import (
	"fmt"
	"time"
)

// LifecycleEvent drives a session from one status to another.
type LifecycleEvent string

const (
	EventStart    LifecycleEvent = "start"
	EventComplete LifecycleEvent = "complete"
	EventCancel   LifecycleEvent = "cancel"
)

// Transition is a single allowed edge in the session lifecycle.
type Transition struct {
	From  SessionStatus
	Event LifecycleEvent
	To    SessionStatus
}

var transitionsTable = []Transition{
	{From: StatusPlanned, Event: EventStart, To: StatusInProgress},
	{From: StatusInProgress, Event: EventComplete, To: StatusCompleted},
	{From: StatusPlanned, Event: EventCancel, To: StatusCancelled},
	{From: StatusInProgress, Event: EventCancel, To: StatusCancelled},
}

// TransitionFor returns the allowed transition for a given status and event.
func TransitionFor(from SessionStatus, ev LifecycleEvent) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

// Apply moves the session through ev. completedAt is set only when the
// session reaches COMPLETED. The session is untouched on failure.
func (s *Session) Apply(ev LifecycleEvent, now time.Time) error {
	tr, ok := TransitionFor(s.Status, ev)
	if !ok {
		return fmt.Errorf("%w: cannot %s a session in status %s", ErrInvalidTransition, ev, s.Status)
	}
	s.Status = tr.To
	if tr.To == StatusCompleted {
		at := now.UTC()
		s.CompletedAt = &at
	}
	s.UpdatedAt = now.UTC()
	return nil
}

func (s *Session) Start(now time.Time) error    { return s.Apply(EventStart, now) }
func (s *Session) Complete(now time.Time) error { return s.Apply(EventComplete, now) }
func (s *Session) Cancel(now time.Time) error   { return s.Apply(EventCancel, now) }
