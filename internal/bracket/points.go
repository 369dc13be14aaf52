package bracket

import "github.com/google/uuid"

// Per-round point values. Chosen so that every round is worth the same in
// total: value(r) x gamesInRound(r) is constant for one bracket size (40 for
// both sizes).
var roundPointsBySize = map[int]map[int]int{
	SizeEight: {
		1: 10, // 4 games x 10 pts
		2: 20, // 2 games x 20 pts
		3: 40, // 1 game  x 40 pts
	},
	SizeSixteen: {
		1: 5,  // 8 games x 5 pts
		2: 10, // 4 games x 10 pts
		3: 20, // 2 games x 20 pts
		4: 40, // 1 game  x 40 pts
	},
}

// Rounds returns the number of rounds for a bracket size (3 for 8, 4 for 16).
func Rounds(size int) int {
	n := 0
	for size > 1 {
		size /= 2
		n++
	}
	return n
}

// GamesInRound returns how many games a round holds: size/2 in round 1,
// halving each round down to the single final.
func GamesInRound(size, round int) int {
	return size >> round
}

func RoundValue(size, round int) int {
	return roundPointsBySize[size][round]
}

// ComputePoints scores a pick set against the currently declared winners.
// winners maps round -> game number -> winning team (absent or nil entries
// mean the game is unresolved). Fully deterministic given its inputs.
func ComputePoints(picks Picks, winners map[int]map[int]*uuid.UUID, size int) int {
	points := 0
	for round := 1; round <= Rounds(size); round++ {
		for gameNumber, winnerID := range winners[round] {
			if winnerID == nil {
				continue
			}
			if pick, ok := picks.Get(round, gameNumber); ok && pick == *winnerID {
				points += RoundValue(size, round)
			}
		}
	}
	return points
}
