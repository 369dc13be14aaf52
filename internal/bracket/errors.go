package bracket

import "errors"

// Validation and conflict errors surfaced to callers. Routes map these to
// HTTP statuses; services wrap them with the offending round/game/seed so
// rejections always name a concrete reason.
var (
	ErrInvalidInput        = errors.New("invalid bracket settings")
	ErrInvalidSize         = errors.New("bracket size must be 8 or 16")
	ErrInvalidStatus       = errors.New("invalid bracket status")
	ErrInvalidSeeds        = errors.New("seeds must be unique numbers from 1 to the bracket size")
	ErrWrongTeamCount      = errors.New("team count must match the bracket size")
	ErrTeamsLocked         = errors.New("teams cannot change once games are seeded")
	ErrAlreadySeeded       = errors.New("games already seeded for this bracket")
	ErrNotSeeded           = errors.New("bracket games not seeded yet")
	ErrInvalidWinner       = errors.New("winner must be one of the teams in this game")
	ErrNotOpen             = errors.New("bracket is not open for entries")
	ErrDuplicateEntry      = errors.New("bracket entry already submitted")
	ErrIncompletePicks     = errors.New("pick missing")
	ErrInvalidPick         = errors.New("invalid pick")
	ErrInsufficientBalance = errors.New("insufficient balance for entry fee")
)
