// Package scoring turns mission outcomes into the four-axis happiness
// score (connection, meaning, joy, growth) and classifies session
// totals. Everything here is pure; persistence lives in the
// repositories.
package scoring

import "github.com/tochtwerk/gelukstocht/internal/model"

// AxisMax caps each axis contribution per checkpoint.
const AxisMax = 25

// AxisScore is the per-checkpoint result of scoring one submission.
type AxisScore struct {
	Connection uint8
	Meaning    uint8
	Joy        uint8
	Growth     uint8
	Bonus      uint8
}

// ForSubmission converts a checkpoint's configured point values into a
// team's score for it. Axis values are capped at AxisMax; the photo
// bonus only counts when the submission actually carried a bonus
// photo.
func ForSubmission(cp *model.Checkpoint, withBonusPhoto bool) AxisScore {
	s := AxisScore{
		Connection: capAxis(cp.ConnectionPts),
		Meaning:    capAxis(cp.MeaningPts),
		Joy:        capAxis(cp.JoyPts),
		Growth:     capAxis(cp.GrowthPts),
	}
	if withBonusPhoto {
		s.Bonus = cp.BonusPhotoPts
	}
	return s
}

func capAxis(v uint8) uint8 {
	if v > AxisMax {
		return AxisMax
	}
	return v
}

// Normalize scales a raw axis sum to the 0-100 range given the number
// of scored checkpoints. With n checkpoints the raw maximum is n*4*25;
// zero checkpoints normalize to zero.
func Normalize(rawTotal uint32, checkpoints uint32) uint32 {
	if checkpoints == 0 {
		return 0
	}
	max := checkpoints * 4 * AxisMax
	n := (uint64(rawTotal)*100 + uint64(max)/2) / uint64(max)
	if n > 100 {
		n = 100
	}
	return uint32(n)
}

// Classification bands for a normalized 0-100 total.
const (
	BandHigh     = "High Impact"
	BandGood     = "Good Impact"
	BandModerate = "Moderate Impact"
	BandLow      = "Low Impact"
)

// Classify maps a normalized total onto its impact band.
func Classify(total uint32) string {
	switch {
	case total >= 70:
		return BandHigh
	case total >= 50:
		return BandGood
	case total >= 30:
		return BandModerate
	default:
		return BandLow
	}
}
