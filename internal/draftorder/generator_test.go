package draftorder

import (
	"testing"

	"github.com/google/uuid"
)

func TestRandomizeIsPermutation(t *testing.T) {
	gen := NewGeneratorWithSeed(42)

	in := make([]uuid.UUID, 10)
	for i := range in {
		in[i] = uuid.New()
	}
	original := make([]uuid.UUID, len(in))
	copy(original, in)

	out := gen.Randomize(in)

	if len(out) != len(in) {
		t.Fatalf("got %d ids, want %d", len(out), len(in))
	}
	seen := make(map[uuid.UUID]bool, len(out))
	for _, id := range out {
		seen[id] = true
	}
	for _, id := range in {
		if !seen[id] {
			t.Errorf("id %s missing from shuffled order", id)
		}
	}
	for i := range in {
		if in[i] != original[i] {
			t.Fatal("Randomize modified its input slice")
		}
	}
}

func TestRoundRobin(t *testing.T) {
	const teams = 6
	rounds, err := RoundRobin(teams)
	if err != nil {
		t.Fatal(err)
	}

	if len(rounds) != teams-1 {
		t.Fatalf("got %d rounds, want %d", len(rounds), teams-1)
	}

	type matchup struct{ a, b int }
	norm := func(p Pair) matchup {
		if p.Home < p.Away {
			return matchup{p.Home, p.Away}
		}
		return matchup{p.Away, p.Home}
	}

	seen := make(map[matchup]bool)
	for ri, round := range rounds {
		if len(round) != teams/2 {
			t.Fatalf("round %d has %d pairs, want %d", ri, len(round), teams/2)
		}
		playing := make(map[int]bool)
		for _, p := range round {
			if p.Home == p.Away {
				t.Fatalf("round %d pairs team %d with itself", ri, p.Home)
			}
			if playing[p.Home] || playing[p.Away] {
				t.Fatalf("round %d schedules a team twice", ri)
			}
			playing[p.Home] = true
			playing[p.Away] = true

			m := norm(p)
			if seen[m] {
				t.Fatalf("pair %v appears more than once", m)
			}
			seen[m] = true
		}
	}

	want := teams * (teams - 1) / 2
	if len(seen) != want {
		t.Errorf("got %d unique pairs, want %d", len(seen), want)
	}
}

func TestRoundRobinRejectsInvalidCounts(t *testing.T) {
	if _, err := RoundRobin(5); err == nil {
		t.Error("expected error for odd team count")
	}
	if _, err := RoundRobin(1); err == nil {
		t.Error("expected error for fewer than 2 teams")
	}
}
