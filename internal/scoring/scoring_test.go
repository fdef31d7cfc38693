package scoring

import (
	"testing"

	"github.com/tochtwerk/gelukstocht/internal/model"
)

func TestForSubmissionCapsAxes(t *testing.T) {
	cp := &model.Checkpoint{
		ConnectionPts: 30, // over the cap
		MeaningPts:    25,
		JoyPts:        10,
		GrowthPts:     0,
		BonusPhotoPts: 5,
	}
	s := ForSubmission(cp, false)
	if s.Connection != 25 {
		t.Errorf("connection = %d, want capped at 25", s.Connection)
	}
	if s.Meaning != 25 || s.Joy != 10 || s.Growth != 0 {
		t.Errorf("axes = %+v, want 25/10/0 for meaning/joy/growth", s)
	}
	if s.Bonus != 0 {
		t.Errorf("bonus = %d without a bonus photo, want 0", s.Bonus)
	}
	if got := ForSubmission(cp, true).Bonus; got != 5 {
		t.Errorf("bonus = %d with a bonus photo, want 5", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw, checkpoints, want uint32
	}{
		{0, 0, 0},
		{0, 3, 0},
		{300, 3, 100}, // full marks over 3 checkpoints
		{150, 3, 50},  // half
		{100, 1, 100}, // single checkpoint, full marks
		{72, 1, 72},
	}
	for _, tt := range tests {
		if got := Normalize(tt.raw, tt.checkpoints); got != tt.want {
			t.Errorf("Normalize(%d, %d) = %d, want %d", tt.raw, tt.checkpoints, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		total uint32
		want  string
	}{
		{100, BandHigh},
		{72, BandHigh},
		{70, BandHigh},
		{69, BandGood},
		{50, BandGood},
		{45, BandModerate},
		{30, BandModerate},
		{29, BandLow},
		{10, BandLow},
		{0, BandLow},
	}
	for _, tt := range tests {
		if got := Classify(tt.total); got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.total, got, tt.want)
		}
	}
}
