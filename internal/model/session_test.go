package model

import (
	"errors"
	"testing"
)

func TestTransitionHappyPath(t *testing.T) {
	steps := []struct {
		from   SessionStatus
		action SessionAction
		want   SessionStatus
	}{
		{SessionDraft, ActionOpenLobby, SessionLobby},
		{SessionLobby, ActionStart, SessionActive},
		{SessionActive, ActionPause, SessionPaused},
		{SessionPaused, ActionResume, SessionActive},
		{SessionActive, ActionComplete, SessionCompleted},
		{SessionPaused, ActionComplete, SessionCompleted},
	}
	for _, s := range steps {
		got, err := Transition(s.from, s.action)
		if err != nil {
			t.Errorf("Transition(%s, %s): %v", s.from, s.action, err)
			continue
		}
		if got != s.want {
			t.Errorf("Transition(%s, %s) = %s, want %s", s.from, s.action, got, s.want)
		}
	}
}

func TestTransitionCancel(t *testing.T) {
	for _, from := range []SessionStatus{SessionDraft, SessionLobby, SessionActive, SessionPaused} {
		got, err := Transition(from, ActionCancel)
		if err != nil || got != SessionCancelled {
			t.Errorf("cancel from %s: got (%s, %v)", from, got, err)
		}
	}
	for _, from := range []SessionStatus{SessionCompleted, SessionCancelled} {
		if _, err := Transition(from, ActionCancel); err == nil {
			t.Errorf("cancel from terminal state %s should fail", from)
		}
	}
}

func TestTransitionInvalid(t *testing.T) {
	invalid := []struct {
		from   SessionStatus
		action SessionAction
	}{
		{SessionDraft, ActionStart},
		{SessionDraft, ActionComplete},
		{SessionLobby, ActionPause},
		{SessionActive, ActionStart},
		{SessionCompleted, ActionStart},
		{SessionCancelled, ActionResume},
		{SessionActive, SessionAction("bogus")},
	}
	for _, s := range invalid {
		_, err := Transition(s.from, s.action)
		if err == nil {
			t.Errorf("Transition(%s, %s) should fail", s.from, s.action)
			continue
		}
		var ite *InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Errorf("Transition(%s, %s) returned %T, want *InvalidTransitionError", s.from, s.action, err)
			continue
		}
		if ite.From != s.from || ite.Action != s.action {
			t.Errorf("error names (%s, %s), want (%s, %s)", ite.From, ite.Action, s.from, s.action)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !SessionCompleted.Terminal() || !SessionCancelled.Terminal() {
		t.Error("completed and cancelled must be terminal")
	}
	if SessionActive.Terminal() || SessionDraft.Terminal() {
		t.Error("active and draft are not terminal")
	}
	if !SessionLobby.Joinable() || !SessionActive.Joinable() {
		t.Error("lobby and active sessions accept joins")
	}
	for _, s := range []SessionStatus{SessionDraft, SessionPaused, SessionCompleted, SessionCancelled} {
		if s.Joinable() {
			t.Errorf("%s should not accept joins", s)
		}
	}
}
