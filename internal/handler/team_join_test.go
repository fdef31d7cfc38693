package handler

import (
	"strings"
	"testing"
)

func TestNormalizeTeamName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"De Toppers", "De Toppers", true},
		{"  padded  ", "padded", true},
		{"x", "x", true},
		{"", "", false},
		{"   ", "", false},
		{strings.Repeat("a", 30), strings.Repeat("a", 30), true},
		{strings.Repeat("a", 31), "", false},
		// multi-byte runes count as one character each
		{strings.Repeat("é", 30), strings.Repeat("é", 30), true},
		{strings.Repeat("é", 31), "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeTeamName(tc.in)
		if ok != tc.ok {
			t.Errorf("NormalizeTeamName(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("NormalizeTeamName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
