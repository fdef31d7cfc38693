package model

import "time"

// CheckpointScore is one team's scored result for one checkpoint.
// There is at most one row per (team, checkpoint); a resubmission
// replaces it.
type CheckpointScore struct {
	ID           uint64
	TeamID       uint64
	CheckpointID uint64
	Connection   uint8
	Meaning      uint8
	Joy          uint8
	Growth       uint8
	Bonus        uint8
	ScoredAt     time.Time
}

// SessionScore is the per-team rollup over all scored checkpoints.
// Insight, when set, is a generated narrative that is written at most
// once and never regenerated.
type SessionScore struct {
	TeamID     uint64
	TeamName   string
	Connection uint32
	Meaning    uint32
	Joy        uint32
	Growth     uint32
	Bonus      uint32
	Total      uint32
}
