package model

import "time"

// Submission records one team's attempt at one checkpoint. At most one
// row exists per (team, checkpoint); resubmitting replaces the payload
// and the checkpoint's score contribution. For kids variants the
// payload carries a purge deadline; the retention sweep nulls out
// PayloadJSON and PhotoURL once it passes.
type Submission struct {
	ID           uint64
	TeamID       uint64
	CheckpointID uint64
	PayloadJSON  *string
	PhotoURL     *string
	WithBonus    bool
	SubmittedAt  time.Time
	PurgeAfter   *time.Time
}

// KidsRetention is how long kids-variant submission payloads are kept
// before the sweep deletes them.
const KidsRetention = 30 * 24 * time.Hour
