package model

import (
	"fmt"
	"time"
)

// SessionStatus is the closed set of states a game session can be in.
// Transitions happen only through Transition; handlers never write the
// column with a free-form string.
type SessionStatus string

const (
	SessionDraft     SessionStatus = "DRAFT"
	SessionLobby     SessionStatus = "LOBBY"
	SessionActive    SessionStatus = "ACTIVE"
	SessionPaused    SessionStatus = "PAUSED"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// SessionAction names the operations a game leader can invoke on a
// session. Each action is valid from a fixed set of source states.
type SessionAction string

const (
	ActionOpenLobby SessionAction = "open_lobby"
	ActionStart     SessionAction = "start"
	ActionPause     SessionAction = "pause"
	ActionResume    SessionAction = "resume"
	ActionComplete  SessionAction = "complete"
	ActionCancel    SessionAction = "cancel"
)

// InvalidTransitionError reports an action attempted from a state that
// does not allow it. The concrete states are included so the caller can
// return a precise reason instead of a generic failure.
type InvalidTransitionError struct {
	From   SessionStatus
	Action SessionAction
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("session action %q not allowed from state %q", e.Action, e.From)
}

// transitions maps an action to its allowed source states and the
// resulting state. cancel is handled separately because it is allowed
// from every non-terminal state.
var transitions = map[SessionAction]struct {
	from []SessionStatus
	to   SessionStatus
}{
	ActionOpenLobby: {from: []SessionStatus{SessionDraft}, to: SessionLobby},
	ActionStart:     {from: []SessionStatus{SessionLobby}, to: SessionActive},
	ActionPause:     {from: []SessionStatus{SessionActive}, to: SessionPaused},
	ActionResume:    {from: []SessionStatus{SessionPaused}, to: SessionActive},
	ActionComplete:  {from: []SessionStatus{SessionActive, SessionPaused}, to: SessionCompleted},
}

// Transition returns the state reached by applying action to from, or
// an *InvalidTransitionError when the action is not allowed. It never
// mutates anything; persistence is the repository's job.
func Transition(from SessionStatus, action SessionAction) (SessionStatus, error) {
	if action == ActionCancel {
		if from.Terminal() {
			return "", &InvalidTransitionError{From: from, Action: action}
		}
		return SessionCancelled, nil
	}
	t, ok := transitions[action]
	if !ok {
		return "", &InvalidTransitionError{From: from, Action: action}
	}
	for _, f := range t.from {
		if f == from {
			return t.to, nil
		}
	}
	return "", &InvalidTransitionError{From: from, Action: action}
}

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// Joinable reports whether teams may join a session in this state.
// Draft sessions are visible to their leader only; terminal sessions
// never accept joins.
func (s SessionStatus) Joinable() bool {
	return s == SessionLobby || s == SessionActive
}

// GameSession is one playthrough of a tour. Once the session reaches a
// terminal state the row is never mutated again.
type GameSession struct {
	ID           uint64
	TourID       uint64
	LeaderID     uint64
	JoinCode     string
	Status       SessionStatus
	PaidAt       *time.Time
	ConsentGiven bool
	ConsentAt    *time.Time
	ScheduledAt  *time.Time
	StartedAt    *time.Time
	EndedAt      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
