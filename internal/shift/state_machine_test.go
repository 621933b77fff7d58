package shift

import (
	"testing"
	"time"
)

func TestCanTransitionAndApply(t *testing.T) {
	if !CanTransition(StatusActive, StatusCompleted) {
		t.Fatalf("expected active -> completed allowed")
	}
	if !CanTransition(StatusActive, StatusCancelled) {
		t.Fatalf("expected active -> cancelled allowed")
	}
	if CanTransition(StatusCompleted, StatusActive) {
		t.Fatalf("expected completed -> active not allowed")
	}
	if CanTransition(StatusCancelled, StatusCompleted) {
		t.Fatalf("expected cancelled -> completed not allowed")
	}

	key := "driver-1"
	sh := &Shift{Status: StatusActive, ActiveKey: &key, StartTime: time.Now()}
	now := time.Now()
	if err := ApplyTransition(sh, StatusCompleted, now); err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if sh.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %s", sh.Status)
	}
	if sh.EndTime == nil {
		t.Fatalf("expected end time set on completion")
	}
	if sh.ActiveKey != nil {
		t.Fatalf("expected active key cleared on completion")
	}

	if err := ApplyTransition(sh, StatusCancelled, now); err == nil {
		t.Fatalf("expected transition out of terminal state to fail")
	}
}
