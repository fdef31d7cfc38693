package model

import "time"

// Team is a group of players inside one session. The name is unique
// within the session, compared case-insensitively. Only the SHA-256
// hash of the bearer token is stored; the raw token is returned to the
// caller once at join time and cannot be recovered or reissued.
type Team struct {
	ID        uint64
	SessionID uint64
	PublicID  string // uuid exposed to clients instead of the row id
	Name      string
	TokenHash string
	CreatedAt time.Time
}

// TeamNameLimits bound the trimmed team name length.
const (
	TeamNameMin = 1
	TeamNameMax = 30
)
