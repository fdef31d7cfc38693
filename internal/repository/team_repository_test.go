package repository

import (
	"fmt"
	"strings"
	"testing"
)

// roster mirrors what CreateTx observes under the session row lock: a
// count and the set of lower-cased names. The lock serializes joins,
// so each attempt sees the state left by every earlier one.
type roster struct {
	limit uint32
	names map[string]bool
}

func newRoster(limit uint32) *roster {
	return &roster{limit: limit, names: make(map[string]bool)}
}

func (r *roster) join(name string) error {
	err := admitDecision(uint32(len(r.names)), r.limit, r.names[strings.ToLower(name)])
	if err != nil {
		return err
	}
	r.names[strings.ToLower(name)] = true
	return nil
}

func TestAdmitDecision(t *testing.T) {
	cases := []struct {
		name      string
		count     uint32
		limit     uint32
		nameTaken bool
		want      error
	}{
		{"room left", 0, 20, false, nil},
		{"last slot", 19, 20, false, nil},
		{"at limit", 20, 20, false, ErrSessionFull},
		{"over limit", 25, 20, false, ErrSessionFull},
		{"name collision", 3, 20, true, ErrDuplicateTeamName},
		{"full reported before name", 20, 20, true, ErrSessionFull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := admitDecision(tc.count, tc.limit, tc.nameTaken); got != tc.want {
				t.Fatalf("admitDecision(%d, %d, %v) = %v, want %v", tc.count, tc.limit, tc.nameTaken, got, tc.want)
			}
		})
	}
}

func TestJoinsNeverExceedCapacity(t *testing.T) {
	const limit = 20
	r := newRoster(limit)

	admitted := 0
	for i := 0; i < limit+5; i++ {
		if err := r.join(fmt.Sprintf("Team %d", i)); err == nil {
			admitted++
		} else if err != ErrSessionFull {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}
	if admitted != limit {
		t.Fatalf("admitted %d teams, want exactly %d", admitted, limit)
	}
}

func TestCaseCollidingNamesAdmitAtMostOne(t *testing.T) {
	r := newRoster(20)

	if err := r.join("Team Vos"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := r.join("team vos"); err != ErrDuplicateTeamName {
		t.Fatalf("case-colliding join = %v, want ErrDuplicateTeamName", err)
	}
	if err := r.join("TEAM VOS"); err != ErrDuplicateTeamName {
		t.Fatalf("upper-case colliding join = %v, want ErrDuplicateTeamName", err)
	}
	if err := r.join("Team Beer"); err != nil {
		t.Fatalf("distinct name rejected: %v", err)
	}
}
