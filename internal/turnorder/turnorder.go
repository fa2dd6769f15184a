// Package turnorder resolves which draft position picks at a given overall
// pick number. It is shared by the standard draft and matchup draft
// runtimes; each parameterizes it with its own ordering policy and order
// table.
package turnorder

import "fmt"

// Policy is an ordering rule applied per round.
type Policy string

const (
	// PolicySnake reverses the order every even round.
	PolicySnake Policy = "SNAKE"
	// PolicyLinear never reverses.
	PolicyLinear Policy = "LINEAR"
	// PolicyThirdRoundReversal runs linear for rounds 1-2, then the
	// reversed order becomes the new baseline from round 3 on. It does not
	// re-reverse every other round thereafter.
	PolicyThirdRoundReversal Policy = "THIRD_ROUND_REVERSAL"
)

// RoundOf returns the 1-based round containing the given overall pick.
func RoundOf(pick, numRosters int) int {
	return (pick-1)/numRosters + 1
}

// PickInRound returns the 1-based pick index within its round.
func PickInRound(pick, numRosters int) int {
	return (pick-1)%numRosters + 1
}

// PositionForPick resolves the draft position (1..numRosters) that owns the
// given overall pick under the policy.
func PositionForPick(pick, numRosters int, policy Policy) (int, error) {
	if numRosters <= 0 {
		return 0, fmt.Errorf("num rosters must be positive, got %d", numRosters)
	}
	if pick <= 0 {
		return 0, fmt.Errorf("pick must be positive, got %d", pick)
	}

	round := RoundOf(pick, numRosters)
	inRound := PickInRound(pick, numRosters)

	switch policy {
	case PolicyLinear:
		return inRound, nil
	case PolicySnake:
		if round%2 == 0 {
			return numRosters - inRound + 1, nil
		}
		return inRound, nil
	case PolicyThirdRoundReversal:
		if round >= 3 {
			return numRosters - inRound + 1, nil
		}
		return inRound, nil
	default:
		return 0, fmt.Errorf("unknown turn order policy: %s", policy)
	}
}

// Next describes the state after advancing past a pick.
type Next struct {
	Pick     int
	Round    int
	Position int
	Done     bool
}

// Advance computes the pick that follows currentPick, or Done when the
// draft has no picks left.
func Advance(currentPick, numRosters, rounds int, policy Policy) (Next, error) {
	total := numRosters * rounds
	next := currentPick + 1
	if next > total {
		return Next{Done: true}, nil
	}

	pos, err := PositionForPick(next, numRosters, policy)
	if err != nil {
		return Next{}, err
	}
	return Next{
		Pick:     next,
		Round:    RoundOf(next, numRosters),
		Position: pos,
	}, nil
}
