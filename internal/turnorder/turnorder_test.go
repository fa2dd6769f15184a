package turnorder

import "testing"

func TestPositionForPick(t *testing.T) {
	tests := []struct {
		name    string
		pick    int
		rosters int
		policy  Policy
		want    int
	}{
		{"snake round 1 first", 1, 4, PolicySnake, 1},
		{"snake round 1 last", 4, 4, PolicySnake, 4},
		{"snake round 2 reverses", 5, 4, PolicySnake, 4},
		{"snake round 2 ends at first", 8, 4, PolicySnake, 1},
		{"snake round 3 back to normal", 9, 4, PolicySnake, 1},
		{"linear round 2 repeats", 5, 4, PolicyLinear, 1},
		{"linear round 3 repeats", 12, 4, PolicyLinear, 4},
		{"trr round 1 normal", 2, 4, PolicyThirdRoundReversal, 2},
		{"trr round 2 still normal", 6, 4, PolicyThirdRoundReversal, 2},
		{"trr round 3 reversed", 9, 4, PolicyThirdRoundReversal, 4},
		{"trr round 4 stays reversed", 13, 4, PolicyThirdRoundReversal, 4},
		{"trr round 4 last pick", 16, 4, PolicyThirdRoundReversal, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PositionForPick(tt.pick, tt.rosters, tt.policy)
			if err != nil {
				t.Fatalf("PositionForPick(%d, %d, %s) error: %v", tt.pick, tt.rosters, tt.policy, err)
			}
			if got != tt.want {
				t.Errorf("PositionForPick(%d, %d, %s) = %d, want %d", tt.pick, tt.rosters, tt.policy, got, tt.want)
			}
		})
	}
}

func TestPositionForPickErrors(t *testing.T) {
	if _, err := PositionForPick(0, 4, PolicySnake); err == nil {
		t.Error("expected error for pick 0")
	}
	if _, err := PositionForPick(1, 0, PolicySnake); err == nil {
		t.Error("expected error for zero rosters")
	}
	if _, err := PositionForPick(1, 4, Policy("AUCTION")); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestRoundOfAndPickInRound(t *testing.T) {
	tests := []struct {
		pick, rosters, round, inRound int
	}{
		{1, 4, 1, 1},
		{4, 4, 1, 4},
		{5, 4, 2, 1},
		{8, 4, 2, 4},
		{13, 6, 3, 1},
	}
	for _, tt := range tests {
		if got := RoundOf(tt.pick, tt.rosters); got != tt.round {
			t.Errorf("RoundOf(%d, %d) = %d, want %d", tt.pick, tt.rosters, got, tt.round)
		}
		if got := PickInRound(tt.pick, tt.rosters); got != tt.inRound {
			t.Errorf("PickInRound(%d, %d) = %d, want %d", tt.pick, tt.rosters, got, tt.inRound)
		}
	}
}

// Every pick in a full draft must land on each position exactly once per
// round, with no gaps, for every policy.
func TestAdvanceCoversAllPositions(t *testing.T) {
	const rosters, rounds = 6, 4

	for _, policy := range []Policy{PolicySnake, PolicyLinear, PolicyThirdRoundReversal} {
		t.Run(string(policy), func(t *testing.T) {
			seen := make(map[int]map[int]int) // round -> position -> count
			pick := 1
			round := 1
			pos, err := PositionForPick(1, rosters, policy)
			if err != nil {
				t.Fatal(err)
			}

			for {
				if seen[round] == nil {
					seen[round] = make(map[int]int)
				}
				seen[round][pos]++

				next, err := Advance(pick, rosters, rounds, policy)
				if err != nil {
					t.Fatal(err)
				}
				if next.Done {
					break
				}
				if next.Pick != pick+1 {
					t.Fatalf("advance from %d jumped to %d", pick, next.Pick)
				}
				pick, round, pos = next.Pick, next.Round, next.Position
			}

			if pick != rosters*rounds {
				t.Fatalf("draft finished at pick %d, want %d", pick, rosters*rounds)
			}
			for r := 1; r <= rounds; r++ {
				for p := 1; p <= rosters; p++ {
					if seen[r][p] != 1 {
						t.Errorf("round %d position %d picked %d times, want 1", r, p, seen[r][p])
					}
				}
			}
		})
	}
}

func TestAdvanceDone(t *testing.T) {
	next, err := Advance(12, 4, 3, PolicySnake)
	if err != nil {
		t.Fatal(err)
	}
	if !next.Done {
		t.Error("expected Done at the final pick")
	}
}
