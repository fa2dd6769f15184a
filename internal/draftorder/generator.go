// Package draftorder produces randomized pick orders and round-robin
// matchup schedules.
package draftorder

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Generator owns a seeded random source so shuffles are independent of the
// global rand state.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator constructs a Generator with its own seed.
func NewGenerator() *Generator {
	return &Generator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewGeneratorWithSeed constructs a deterministic Generator for tests.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Randomize returns a uniformly random permutation of rosterIDs
// (Fisher-Yates). The input slice is not modified.
func (g *Generator) Randomize(rosterIDs []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(rosterIDs))
	copy(out, rosterIDs)
	for i := len(out) - 1; i > 0; i-- {
		j := g.rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Intn exposes the generator's random source for uniform choices elsewhere
// in the draft runtimes.
func (g *Generator) Intn(n int) int {
	return g.rng.Intn(n)
}

// Pair is one fixture between two team indices (0-based).
type Pair struct {
	Home int
	Away int
}

// RoundRobin generates numTeams-1 rounds of fixtures using the circle
// method. Each round is a perfect matching; over the full cycle every
// unordered pair of teams appears exactly once. numTeams must be even and
// at least 2; callers reject odd roster counts before invoking.
func RoundRobin(numTeams int) ([][]Pair, error) {
	if numTeams < 2 {
		return nil, fmt.Errorf("round robin requires at least 2 teams, got %d", numTeams)
	}
	if numTeams%2 != 0 {
		return nil, fmt.Errorf("round robin requires an even number of teams, got %d", numTeams)
	}

	// Team 0 stays fixed; the rest rotate around the circle.
	rotating := make([]int, numTeams-1)
	for i := range rotating {
		rotating[i] = i + 1
	}

	rounds := make([][]Pair, 0, numTeams-1)
	for r := 0; r < numTeams-1; r++ {
		pairs := make([]Pair, 0, numTeams/2)
		pairs = append(pairs, Pair{Home: 0, Away: rotating[0]})
		for i := 1; i < numTeams/2; i++ {
			pairs = append(pairs, Pair{
				Home: rotating[i],
				Away: rotating[len(rotating)-i],
			})
		}
		rounds = append(rounds, pairs)

		// Rotate clockwise: last element moves to the front.
		last := rotating[len(rotating)-1]
		copy(rotating[1:], rotating[:len(rotating)-1])
		rotating[0] = last
	}

	return rounds, nil
}
