package domain

import (
	"errors"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

func TestLifecycleAllowedTransitions(t *testing.T) {
	tests := []struct {
		from SessionStatus
		ev   LifecycleEvent
		want SessionStatus
	}{
		{StatusPlanned, EventStart, StatusInProgress},
		{StatusInProgress, EventComplete, StatusCompleted},
		{StatusPlanned, EventCancel, StatusCancelled},
		{StatusInProgress, EventCancel, StatusCancelled},
	}
	for _, tt := range tests {
		s := &Session{Status: tt.from}
		if err := s.Apply(tt.ev, fixedNow); err != nil {
			t.Fatalf("%s from %s: unexpected error: %v", tt.ev, tt.from, err)
		}
		if s.Status != tt.want {
			t.Errorf("%s from %s: status = %s, want %s", tt.ev, tt.from, s.Status, tt.want)
		}
		if (s.CompletedAt != nil) != (s.Status == StatusCompleted) {
			t.Errorf("%s from %s: completedAt = %v with status %s", tt.ev, tt.from, s.CompletedAt, s.Status)
		}
	}
}

func TestLifecycleRejectedTransitions(t *testing.T) {
	tests := []struct {
		from SessionStatus
		ev   LifecycleEvent
	}{
		{StatusPlanned, EventComplete},
		{StatusInProgress, EventStart},
		{StatusCompleted, EventStart},
		{StatusCompleted, EventComplete},
		{StatusCompleted, EventCancel},
		{StatusCancelled, EventStart},
		{StatusCancelled, EventComplete},
		{StatusCancelled, EventCancel},
	}
	for _, tt := range tests {
		s := &Session{Status: tt.from}
		err := s.Apply(tt.ev, fixedNow)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s from %s: err = %v, want ErrInvalidTransition", tt.ev, tt.from, err)
		}
		if s.Status != tt.from {
			t.Errorf("%s from %s: status changed to %s", tt.ev, tt.from, s.Status)
		}
	}
}

func TestCompleteSetsCompletedAt(t *testing.T) {
	s := &Session{Status: StatusInProgress}
	if err := s.Complete(fixedNow); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if s.CompletedAt == nil || !s.CompletedAt.Equal(fixedNow) {
		t.Fatalf("completedAt = %v, want %v", s.CompletedAt, fixedNow)
	}
}

func TestCancelFromInProgressThenComplete(t *testing.T) {
	s := &Session{Status: StatusInProgress}
	if err := s.Cancel(fixedNow); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.Complete(fixedNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("complete after cancel: err = %v, want ErrInvalidTransition", err)
	}
	if s.CompletedAt != nil {
		t.Errorf("completedAt = %v, want nil", s.CompletedAt)
	}
}
