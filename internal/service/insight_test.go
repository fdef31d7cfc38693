package service

import (
	"context"
	"strings"
	"testing"

	"github.com/tochtwerk/gelukstocht/internal/model"
)

func TestTemplateInsightEmptySession(t *testing.T) {
	text, err := TemplateInsight{}.Generate(context.Background(), nil, 0, "Low Impact")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "No teams") {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestTemplateInsightNamesLeaderAndAxis(t *testing.T) {
	scores := []model.SessionScore{
		{TeamName: "Achterblijvers", Connection: 10, Meaning: 5, Joy: 5, Growth: 5, Total: 25},
		{TeamName: "Koplopers", Connection: 20, Meaning: 15, Joy: 30, Growth: 10, Total: 75},
	}
	text, err := TemplateInsight{}.Generate(context.Background(), scores, 62, "Good Impact")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Koplopers") {
		t.Errorf("top team missing from %q", text)
	}
	if !strings.Contains(text, "62/100") || !strings.Contains(text, "Good Impact") {
		t.Errorf("score summary missing from %q", text)
	}
	// joy has the highest cross-team sum (35)
	if !strings.Contains(text, "joy") {
		t.Errorf("strongest axis missing from %q", text)
	}
}
