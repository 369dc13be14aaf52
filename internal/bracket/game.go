package bracket

import (
	"time"

	"github.com/google/uuid"
)

type GameStatus string

const (
	GameScheduled GameStatus = "scheduled"
	GameCompleted GameStatus = "completed"
)

type Game struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BracketID uuid.UUID `db:"bracket_id" json:"bracket_id"`

	// Position in the bracket; game numbers are 1-indexed within a round.
	Round      int `db:"round" json:"round"`
	GameNumber int `db:"game_number" json:"game_number"`

	// Round 1 slots are filled at seed time, later rounds only once their
	// feeder games resolve.
	Team1ID *uuid.UUID `db:"team1_id" json:"team1_id"`
	Team2ID *uuid.UUID `db:"team2_id" json:"team2_id"`

	WinnerTeamID *uuid.UUID `db:"winner_team_id" json:"winner_team_id"`
	Status       GameStatus `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasTeam reports whether the team currently occupies one of the game's slots.
func (g *Game) HasTeam(teamID uuid.UUID) bool {
	if g.Team1ID != nil && *g.Team1ID == teamID {
		return true
	}
	return g.Team2ID != nil && *g.Team2ID == teamID
}

func (g *Game) Resolved() bool {
	return g.WinnerTeamID != nil
}
