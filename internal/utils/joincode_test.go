package utils

import (
	"strings"
	"testing"
)

func TestNewJoinCodeAlphabet(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := NewJoinCode()
		if err != nil {
			t.Fatalf("NewJoinCode: %v", err)
		}
		if len(code) != JoinCodeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), JoinCodeLength)
		}
		if strings.ContainsAny(code, "0O1I") {
			t.Fatalf("code %q contains an ambiguous character", code)
		}
		if !ValidJoinCode(code) {
			t.Fatalf("generated code %q fails its own validation", code)
		}
	}
}

func TestValidJoinCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC234", true},
		{"ZZZZZZ", true},
		{"abc234", false}, // lower case is normalized before validation
		{"AB C23", false},
		{"ABC23", false},   // too short
		{"ABC2345", false}, // too long
		{"ABC0DE", false},  // excluded zero
		{"ABCODE", false},  // excluded letter O
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidJoinCode(tt.code); got != tt.want {
			t.Errorf("ValidJoinCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestNewTeamTokenEntropy(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewTeamToken()
		if err != nil {
			t.Fatalf("NewTeamToken: %v", err)
		}
		if len(tok) != 64 { // 32 bytes hex encoded
			t.Fatalf("token length = %d, want 64", len(tok))
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("abc")
	if a != HashToken("abc") {
		t.Error("HashToken is not deterministic")
	}
	if a == HashToken("abd") {
		t.Error("distinct inputs should not collide")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
}
