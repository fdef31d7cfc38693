package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tochtwerk/gelukstocht/internal/model"
)

// InsightGenerator produces the narrative summary attached to a
// finished session's scoreboard. Implementations may call out to an
// external text service; the caller guarantees Generate runs at most
// once per session.
type InsightGenerator interface {
	Generate(ctx context.Context, scores []model.SessionScore, normalized uint32, band string) (string, error)
}

// TemplateInsight builds the narrative locally from the score data.
// It is the default generator; an external service can be swapped in
// without touching the scoreboard handler.
type TemplateInsight struct{}

func (TemplateInsight) Generate(_ context.Context, scores []model.SessionScore, normalized uint32, band string) (string, error) {
	if len(scores) == 0 {
		return "No teams submitted any missions this session.", nil
	}

	var top model.SessionScore
	for _, s := range scores {
		if s.Total > top.Total || top.TeamName == "" {
			top = s
		}
	}

	axis, pts := strongestAxis(scores)

	var b strings.Builder
	fmt.Fprintf(&b, "This session scored %d/100: %s. ", normalized, band)
	fmt.Fprintf(&b, "%s led the field with %d points. ", top.TeamName, top.Total)
	fmt.Fprintf(&b, "The strongest axis across all teams was %s (%d points).", axis, pts)
	return b.String(), nil
}

func strongestAxis(scores []model.SessionScore) (string, uint32) {
	var conn, meaning, joy, growth uint32
	for _, s := range scores {
		conn += s.Connection
		meaning += s.Meaning
		joy += s.Joy
		growth += s.Growth
	}
	best, pts := "connection", conn
	if meaning > pts {
		best, pts = "meaning", meaning
	}
	if joy > pts {
		best, pts = "joy", joy
	}
	if growth > pts {
		best, pts = "growth", growth
	}
	return best, pts
}
