// Package repository implements raw-SQL persistence for the game and
// commerce aggregates. Error values here are sentinels shared across
// repositories so handlers can map each failure cause to a distinct
// HTTP status and reason string instead of a generic fault.
package repository

import "errors"

// ErrForbidden is returned when the caller operates on a resource they
// do not own (e.g. a leader driving someone else's session, or a team
// token presented against the wrong session). Maps to 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict signals state that blocks the operation, such as editing
// a tour while an active or paused session references it. Maps to 409.
var ErrConflict = errors.New("conflict")

// Team join rejections. Each cause is distinct so the client can react
// (re-enter the code vs. pick another name).
var (
	ErrSessionNotStarted = errors.New("session has not opened its lobby yet")
	ErrSessionOver       = errors.New("session is completed or cancelled")
	ErrSessionFull       = errors.New("session has reached its team limit")
	ErrDuplicateTeamName = errors.New("team name already taken in this session")
)

// ErrNotPaid blocks starting a priced session before its order is
// paid.
var ErrNotPaid = errors.New("session order not paid")

// ErrInsightExists guards the write-once narrative insight: once a
// session has one it is never regenerated.
var ErrInsightExists = errors.New("insight already set")

// ErrJoinCodeCollision surfaces the (astronomically unlikely) case of
// exhausting join-code generation retries. It is an integrity failure:
// logged loudly, never swallowed.
var ErrJoinCodeCollision = errors.New("could not allocate a unique join code")
