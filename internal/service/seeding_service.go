package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/store"
)

type SeedingService struct {
	db    *sqlx.DB
	store *store.BracketStore
}

func NewSeedingService(db *sqlx.DB, store *store.BracketStore) *SeedingService {
	return &SeedingService{db: db, store: store}
}

type TeamInput struct {
	Name string
	Seed int
}

// ReplaceTeams swaps out the full team list for a bracket. Only allowed
// before games are seeded; the list must hold exactly bracket-size teams
// with a contiguous unique 1..N seed assignment.
func (s *SeedingService) ReplaceTeams(ctx context.Context, bracketID string, inputs []TeamInput) error {
	b, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return err
	}

	count, err := s.store.CountGames(ctx, bracketID)
	if err != nil {
		return err
	}
	if count > 0 {
		return bracket.ErrTeamsLocked
	}

	if len(inputs) != b.Size {
		return fmt.Errorf("%w: expected %d teams, got %d", bracket.ErrWrongTeamCount, b.Size, len(inputs))
	}

	seen := make(map[int]bool, len(inputs))
	for _, input := range inputs {
		if input.Seed < 1 || input.Seed > b.Size || seen[input.Seed] {
			return fmt.Errorf("%w: seed %d", bracket.ErrInvalidSeeds, input.Seed)
		}
		seen[input.Seed] = true
	}

	bracketUUID, err := uuid.Parse(bracketID)
	if err != nil {
		return err
	}

	teams := make([]bracket.Team, 0, len(inputs))
	for _, input := range inputs {
		name := input.Name
		if name == "" {
			name = fmt.Sprintf("TBD Seed %d", input.Seed)
		}
		teams = append(teams, bracket.Team{
			ID:        uuid.New(),
			BracketID: bracketUUID,
			Name:      name,
			Seed:      input.Seed,
		})
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.store.ReplaceTeamsTx(ctx, tx, bracketID, teams); err != nil {
		return err
	}
	return tx.Commit()
}

// SeedGames builds the full round skeleton: round 1 pairs teams by the
// standard seed order, later rounds get empty slots that only propagation
// fills. Rejected if the bracket already has games.
func (s *SeedingService) SeedGames(ctx context.Context, bracketID string) error {
	b, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return err
	}

	count, err := s.store.CountGames(ctx, bracketID)
	if err != nil {
		return err
	}
	if count > 0 {
		return bracket.ErrAlreadySeeded
	}

	teams, err := s.store.GetTeams(ctx, bracketID)
	if err != nil {
		return err
	}
	if len(teams) != b.Size {
		return fmt.Errorf("%w: set all %d teams before seeding games", bracket.ErrWrongTeamCount, b.Size)
	}

	teamBySeed := make(map[int]uuid.UUID, len(teams))
	for _, team := range teams {
		teamBySeed[team.Seed] = team.ID
	}

	var games []bracket.Game
	for i, pair := range bracket.FirstRoundPairs(b.Size) {
		team1 := teamBySeed[pair[0]]
		team2 := teamBySeed[pair[1]]
		games = append(games, bracket.Game{
			ID:         uuid.New(),
			BracketID:  b.ID,
			Round:      1,
			GameNumber: i + 1,
			Team1ID:    &team1,
			Team2ID:    &team2,
			Status:     bracket.GameScheduled,
		})
	}
	for round := 2; round <= bracket.Rounds(b.Size); round++ {
		for n := 1; n <= bracket.GamesInRound(b.Size, round); n++ {
			games = append(games, bracket.Game{
				ID:         uuid.New(),
				BracketID:  b.ID,
				Round:      round,
				GameNumber: n,
				Status:     bracket.GameScheduled,
			})
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.store.CreateGamesTx(ctx, tx, games); err != nil {
		return err
	}
	return tx.Commit()
}
