package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/ledger"
	"github.com/valiantbucks/valiant-bucks/internal/store"
)

type BracketService struct {
	db     *sqlx.DB
	store  *store.BracketStore
	ledger *store.LedgerStore
}

func NewBracketService(db *sqlx.DB, store *store.BracketStore, ledgerStore *store.LedgerStore) *BracketService {
	return &BracketService{db: db, store: store, ledger: ledgerStore}
}

type CreateBracketInput struct {
	Name           string
	Season         *string
	Gender         string
	Size           int
	EntryFee       int64
	PayoutPerPoint int64
	Status         bracket.BracketStatus
}

type UpdateBracketInput struct {
	Name           *string
	Season         *string
	Gender         *string
	EntryFee       *int64
	PayoutPerPoint *int64
	Status         *bracket.BracketStatus
	Size           *int
}

type BracketData struct {
	Bracket *bracket.Bracket
	Teams   []bracket.Team
	Games   []bracket.Game
}

func (s *BracketService) CreateBracket(ctx context.Context, input CreateBracketInput) (*bracket.Bracket, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: bracket name is required", bracket.ErrInvalidInput)
	}
	if !bracket.ValidSize(input.Size) {
		return nil, bracket.ErrInvalidSize
	}
	if input.EntryFee < 0 || input.PayoutPerPoint < 0 {
		return nil, fmt.Errorf("%w: entry fee and payout rate must be non-negative", bracket.ErrInvalidInput)
	}
	status := input.Status
	if status == "" {
		status = bracket.BracketOpen
	}
	if !bracket.ValidStatus(status) {
		return nil, bracket.ErrInvalidStatus
	}

	b := &bracket.Bracket{
		ID:             uuid.New(),
		Name:           input.Name,
		Season:         input.Season,
		Gender:         input.Gender,
		Size:           input.Size,
		EntryFee:       input.EntryFee,
		PayoutPerPoint: input.PayoutPerPoint,
		Status:         status,
	}
	if err := s.store.CreateBracket(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BracketService) UpdateBracket(ctx context.Context, id string, input UpdateBracketInput) (*bracket.Bracket, error) {
	b, err := s.store.GetBracket(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != "" {
		b.Name = *input.Name
	}
	if input.Season != nil {
		b.Season = input.Season
	}
	if input.Gender != nil {
		b.Gender = *input.Gender
	}
	if input.EntryFee != nil {
		if *input.EntryFee < 0 {
			return nil, fmt.Errorf("%w: entry fee must be non-negative", bracket.ErrInvalidInput)
		}
		b.EntryFee = *input.EntryFee
	}
	if input.PayoutPerPoint != nil {
		if *input.PayoutPerPoint < 0 {
			return nil, fmt.Errorf("%w: payout rate must be non-negative", bracket.ErrInvalidInput)
		}
		b.PayoutPerPoint = *input.PayoutPerPoint
	}
	if input.Status != nil {
		if !bracket.ValidStatus(*input.Status) {
			return nil, bracket.ErrInvalidStatus
		}
		b.Status = *input.Status
	}
	if input.Size != nil && *input.Size != b.Size {
		if !bracket.ValidSize(*input.Size) {
			return nil, bracket.ErrInvalidSize
		}
		count, err := s.store.CountGames(ctx, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, bracket.ErrAlreadySeeded
		}
		b.Size = *input.Size
	}

	if err := s.store.UpdateBracket(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BracketService) ListBrackets(ctx context.Context) ([]bracket.Bracket, error) {
	return s.store.ListBrackets(ctx)
}

func (s *BracketService) GetBracketData(ctx context.Context, id string) (*BracketData, error) {
	b, err := s.store.GetBracket(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.loadData(ctx, b)
}

// ActiveBracket returns the newest bracket for a gender tag with its teams
// and games, or nil when none exists yet.
func (s *BracketService) ActiveBracket(ctx context.Context, gender string) (*BracketData, error) {
	b, err := s.store.ActiveBracket(ctx, gender)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.loadData(ctx, b)
}

func (s *BracketService) loadData(ctx context.Context, b *bracket.Bracket) (*BracketData, error) {
	teams, err := s.store.GetTeams(ctx, b.ID.String())
	if err != nil {
		return nil, err
	}
	games, err := s.store.GetGames(ctx, b.ID.String())
	if err != nil {
		return nil, err
	}
	return &BracketData{Bracket: b, Teams: teams, Games: games}, nil
}

// DeleteBracket removes a bracket and everything under it, refunding every
// entrant's fee first.
func (s *BracketService) DeleteBracket(ctx context.Context, id string) error {
	b, err := s.store.GetBracket(ctx, id)
	if err != nil {
		return err
	}
	entries, err := s.store.GetEntries(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, entry := range entries {
		refund := b.EntryFee - entry.Payout // claw back settled payouts too
		if refund == 0 {
			continue
		}
		if _, err := s.ledger.AdjustBalanceTx(ctx, tx, entry.UserID, refund); err != nil {
			return err
		}
		description := fmt.Sprintf("%s bracket deleted - entry fee refunded", b.Name)
		if err := s.ledger.RecordTransactionTx(ctx, tx, entry.UserID, ledger.TypeBracketRefund, refund, description); err != nil {
			return err
		}
	}

	if err := s.store.DeleteBracketTx(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *BracketService) Leaderboard(ctx context.Context, id string) ([]store.LeaderboardRow, error) {
	if _, err := s.store.GetBracket(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Leaderboard(ctx, id)
}

type ChampionPick struct {
	TeamID   uuid.UUID
	TeamName string
	Count    int
}

type UpsetPick struct {
	Round      int
	GameNumber int
	TeamID     uuid.UUID
	TeamName   string
	WinnerSeed int
	LoserSeed  int
	PickedBy   int
}

type EntryStats struct {
	TotalEntries  int
	ChampionPicks []ChampionPick
	RarestUpset   *UpsetPick
}

// Stats aggregates display numbers over all entries: how the field picked
// the champion, and the completed upset (lower seed beating a higher one)
// that the fewest entrants called correctly.
func (s *BracketService) Stats(ctx context.Context, id string) (*EntryStats, error) {
	b, err := s.store.GetBracket(ctx, id)
	if err != nil {
		return nil, err
	}
	teams, err := s.store.GetTeams(ctx, id)
	if err != nil {
		return nil, err
	}
	games, err := s.store.GetGames(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.GetEntries(ctx, id)
	if err != nil {
		return nil, err
	}

	teamByID := make(map[uuid.UUID]bracket.Team, len(teams))
	for _, team := range teams {
		teamByID[team.ID] = team
	}

	stats := &EntryStats{TotalEntries: len(entries)}

	finalRound := bracket.Rounds(b.Size)
	championCounts := make(map[uuid.UUID]int)
	for _, entry := range entries {
		if pick, ok := entry.Picks.Get(finalRound, 1); ok {
			championCounts[pick]++
		}
	}
	for teamID, count := range championCounts {
		stats.ChampionPicks = append(stats.ChampionPicks, ChampionPick{
			TeamID:   teamID,
			TeamName: teamByID[teamID].Name,
			Count:    count,
		})
	}
	sort.Slice(stats.ChampionPicks, func(i, j int) bool {
		if stats.ChampionPicks[i].Count != stats.ChampionPicks[j].Count {
			return stats.ChampionPicks[i].Count > stats.ChampionPicks[j].Count
		}
		return stats.ChampionPicks[i].TeamName < stats.ChampionPicks[j].TeamName
	})

	for _, game := range games {
		if game.WinnerTeamID == nil || game.Team1ID == nil || game.Team2ID == nil {
			continue
		}
		winner := teamByID[*game.WinnerTeamID]
		loserID := *game.Team1ID
		if loserID == winner.ID {
			loserID = *game.Team2ID
		}
		loser := teamByID[loserID]
		if winner.Seed <= loser.Seed {
			continue // not an upset
		}

		predicted := 0
		for _, entry := range entries {
			if pick, ok := entry.Picks.Get(game.Round, game.GameNumber); ok && pick == winner.ID {
				predicted++
			}
		}
		if predicted == 0 {
			continue
		}
		if stats.RarestUpset == nil || predicted < stats.RarestUpset.PickedBy {
			stats.RarestUpset = &UpsetPick{
				Round:      game.Round,
				GameNumber: game.GameNumber,
				TeamID:     winner.ID,
				TeamName:   winner.Name,
				WinnerSeed: winner.Seed,
				LoserSeed:  loser.Seed,
				PickedBy:   predicted,
			}
		}
	}

	return stats, nil
}
