package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/store"
)

// MatchService owns winner declaration and the downstream cascade. Calls are
// serialized per bracket: the cascade-then-settle sequence reads and writes
// shared game and entry state and is not safe interleaved.
type MatchService struct {
	db         *sqlx.DB
	store      *store.BracketStore
	settlement *SettlementService

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMatchService(db *sqlx.DB, store *store.BracketStore, settlement *SettlementService) *MatchService {
	return &MatchService{
		db:         db,
		store:      store,
		settlement: settlement,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *MatchService) bracketLock(bracketID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[bracketID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[bracketID] = lock
	}
	return lock
}

// SetWinner declares (or clears, with a nil winner) the result of one game,
// then recomputes every later round's slots, invalidates stale winners,
// flips the bracket completed when the final resolves (and back to
// in-progress when a correction unresolves it), and re-settles all entries.
func (s *MatchService) SetWinner(ctx context.Context, bracketID, gameID string, winnerTeamID *uuid.UUID) error {
	lock := s.bracketLock(bracketID)
	lock.Lock()
	defer lock.Unlock()

	b, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	game, err := s.store.GetGameTx(ctx, tx, bracketID, gameID)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}

	if winnerTeamID != nil && !game.HasTeam(*winnerTeamID) {
		return bracket.ErrInvalidWinner
	}

	game.WinnerTeamID = winnerTeamID
	if winnerTeamID != nil {
		game.Status = bracket.GameCompleted
	} else {
		game.Status = bracket.GameScheduled
	}
	if err := s.store.UpdateGameTx(ctx, tx, game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	games, err := s.store.GetGamesTx(ctx, tx, bracketID)
	if err != nil {
		return fmt.Errorf("failed to load games: %w", err)
	}

	changed := bracket.Propagate(games, b.Size)
	for i := range changed {
		if err := s.store.UpdateGameTx(ctx, tx, &changed[i]); err != nil {
			return fmt.Errorf("failed to update game %d-%d: %w", changed[i].Round, changed[i].GameNumber, err)
		}
	}

	merged := mergeGames(games, changed)

	status := b.Status
	if bracket.FinalWinner(merged, b.Size) != nil {
		status = bracket.BracketCompleted
	} else if b.Status == bracket.BracketCompleted {
		// A correction invalidated the final; the bracket is live again.
		status = bracket.BracketInProgress
	}
	if status != b.Status {
		if err := s.store.UpdateBracketStatusTx(ctx, tx, bracketID, status); err != nil {
			return fmt.Errorf("failed to update bracket status: %w", err)
		}
		b.Status = status
	}

	if err := s.settlement.RecalcEntriesTx(ctx, tx, b, merged); err != nil {
		return fmt.Errorf("failed to settle entries: %w", err)
	}

	return tx.Commit()
}

func mergeGames(games, changed []bracket.Game) []bracket.Game {
	byID := make(map[uuid.UUID]bracket.Game, len(changed))
	for _, g := range changed {
		byID[g.ID] = g
	}
	merged := make([]bracket.Game, len(games))
	for i, g := range games {
		if updated, ok := byID[g.ID]; ok {
			merged[i] = updated
		} else {
			merged[i] = g
		}
	}
	return merged
}
