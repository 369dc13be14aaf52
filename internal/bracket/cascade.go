package bracket

import "github.com/google/uuid"

// Propagate recomputes every later round's team slots from the winners of
// its two feeder games (games 2g-1 and 2g of the previous round) and clears
// any stored winner that no longer matches one of the recomputed slots.
//
// Rounds are walked in strictly increasing order, so each game only reads
// upstream state that has already been recomputed in this pass. The input
// slice is not mutated; the returned slice holds copies of the games whose
// slots, winner or status changed.
func Propagate(games []Game, size int) []Game {
	byRound := make(map[int]map[int]*Game)
	for i := range games {
		g := games[i] // copy, the caller's slice stays untouched
		if byRound[g.Round] == nil {
			byRound[g.Round] = make(map[int]*Game)
		}
		byRound[g.Round][g.GameNumber] = &g
	}

	var changed []Game
	for round := 2; round <= Rounds(size); round++ {
		for n := 1; n <= GamesInRound(size, round); n++ {
			game := byRound[round][n]
			if game == nil {
				continue
			}

			team1 := feederWinner(byRound, round-1, 2*n-1)
			team2 := feederWinner(byRound, round-1, 2*n)

			next := *game
			next.Team1ID = team1
			next.Team2ID = team2
			if next.WinnerTeamID != nil && !next.HasTeam(*next.WinnerTeamID) {
				next.WinnerTeamID = nil
			}
			if next.WinnerTeamID != nil {
				next.Status = GameCompleted
			} else {
				next.Status = GameScheduled
			}

			if !sameSlots(game, &next) {
				changed = append(changed, next)
			}
			*game = next
		}
	}
	return changed
}

func feederWinner(byRound map[int]map[int]*Game, round, gameNumber int) *uuid.UUID {
	feeder := byRound[round][gameNumber]
	if feeder == nil || feeder.WinnerTeamID == nil {
		return nil
	}
	id := *feeder.WinnerTeamID
	return &id
}

func sameSlots(a, b *Game) bool {
	return sameID(a.Team1ID, b.Team1ID) &&
		sameID(a.Team2ID, b.Team2ID) &&
		sameID(a.WinnerTeamID, b.WinnerTeamID) &&
		a.Status == b.Status
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// FinalWinner returns the winner of the unique final-round game, or nil
// while it is unresolved.
func FinalWinner(games []Game, size int) *uuid.UUID {
	final := Rounds(size)
	for i := range games {
		if games[i].Round == final && games[i].GameNumber == 1 {
			return games[i].WinnerTeamID
		}
	}
	return nil
}

// WinnersByRound indexes declared winners as round -> game number -> team.
func WinnersByRound(games []Game) map[int]map[int]*uuid.UUID {
	winners := make(map[int]map[int]*uuid.UUID)
	for i := range games {
		g := games[i]
		if winners[g.Round] == nil {
			winners[g.Round] = make(map[int]*uuid.UUID)
		}
		winners[g.Round][g.GameNumber] = g.WinnerTeamID
	}
	return winners
}
