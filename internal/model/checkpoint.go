package model

import "time"

// Checkpoint is one stop on a tour, ordered by OrderIndex. The
// geofence is either a circle (center + radius) or, for kids variants,
// a polygon stored as an ordered vertex list. Exactly one of the two
// shapes is set; PolygonJSON empty means circle.
type Checkpoint struct {
	ID            uint64
	TourID        uint64
	OrderIndex    uint32
	Title         string
	MissionText   string
	Lat           float64
	Lng           float64
	RadiusMeters  float64
	PolygonJSON   string // JSON array of [lat,lng] pairs; empty for circle fences
	Hint1         string
	Hint2         string
	Hint3         string
	ConnectionPts uint8  // 0-25
	MeaningPts    uint8  // 0-25
	JoyPts        uint8  // 0-25
	GrowthPts     uint8  // 0-25
	TimeLimitSec  uint32 // 0 = no limit
	BonusPhotoPts uint8  // bonus pool, outside the four axes
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Hint returns the stored hint text for level 1-3, or "" when the
// level is out of range or the hint was left empty.
func (cp *Checkpoint) Hint(level int) string {
	switch level {
	case 1:
		return cp.Hint1
	case 2:
		return cp.Hint2
	case 3:
		return cp.Hint3
	}
	return ""
}
