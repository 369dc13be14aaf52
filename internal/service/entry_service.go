package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/ledger"
	"github.com/valiantbucks/valiant-bucks/internal/store"
)

type EntryService struct {
	db     *sqlx.DB
	store  *store.BracketStore
	ledger *store.LedgerStore
}

func NewEntryService(db *sqlx.DB, store *store.BracketStore, ledgerStore *store.LedgerStore) *EntryService {
	return &EntryService{db: db, store: store, ledger: ledgerStore}
}

// SubmitEntry validates a full pick set against the live bracket shape,
// charges the entry fee, and persists a one-per-user entry. Picks must run
// through the bracket consistently: a later-round pick has to be one of the
// entry's own advancing teams from the two feeder games.
func (s *EntryService) SubmitEntry(ctx context.Context, bracketID string, userID uuid.UUID, picks bracket.Picks) (*bracket.Entry, error) {
	b, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return nil, err
	}
	if b.Status != bracket.BracketOpen {
		return nil, bracket.ErrNotOpen
	}

	if _, err := s.store.GetEntry(ctx, bracketID, userID.String()); err == nil {
		return nil, bracket.ErrDuplicateEntry
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	games, err := s.store.GetGames(ctx, bracketID)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, bracket.ErrNotSeeded
	}

	validated, err := validatePicks(b.Size, games, picks)
	if err != nil {
		return nil, err
	}

	entry := &bracket.Entry{
		ID:        uuid.New(),
		BracketID: b.ID,
		UserID:    userID,
		Picks:     validated,
		Points:    0,
		Payout:    0,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if b.EntryFee > 0 {
		if err := s.ledger.DebitTx(ctx, tx, userID, b.EntryFee); err != nil {
			return nil, err
		}
		description := fmt.Sprintf("%s bracket entry fee", b.Name)
		if err := s.ledger.RecordTransactionTx(ctx, tx, userID, ledger.TypeBracketEntry, -b.EntryFee, description); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateEntryTx(ctx, tx, entry); err != nil {
		// The unique (bracket_id, user_id) constraint settles the race
		// between concurrent submissions.
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, bracket.ErrDuplicateEntry
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// validatePicks checks completeness and round-dependency, returning a copy
// holding exactly the required rounds and games.
func validatePicks(size int, games []bracket.Game, picks bracket.Picks) (bracket.Picks, error) {
	byRound := make(map[int]map[int]*bracket.Game)
	for i := range games {
		g := &games[i]
		if byRound[g.Round] == nil {
			byRound[g.Round] = make(map[int]*bracket.Game)
		}
		byRound[g.Round][g.GameNumber] = g
	}

	validated := make(bracket.Picks, bracket.Rounds(size))
	for round := 1; round <= bracket.Rounds(size); round++ {
		validated[round] = make(map[int]uuid.UUID, bracket.GamesInRound(size, round))
		for n := 1; n <= bracket.GamesInRound(size, round); n++ {
			pick, ok := picks.Get(round, n)
			if !ok || pick == uuid.Nil {
				return nil, fmt.Errorf("%w: complete all round %d picks (game %d missing)", bracket.ErrIncompletePicks, round, n)
			}

			if round == 1 {
				game := byRound[1][n]
				if game == nil || !game.HasTeam(pick) {
					return nil, fmt.Errorf("%w: round 1 game %d pick must be one of the teams", bracket.ErrInvalidPick, n)
				}
			} else {
				left := validated[round-1][2*n-1]
				right := validated[round-1][2*n]
				if pick != left && pick != right {
					return nil, fmt.Errorf("%w: round %d game %d must come from your round %d winners", bracket.ErrInvalidPick, round, n, round-1)
				}
			}
			validated[round][n] = pick
		}
	}
	return validated, nil
}

func (s *EntryService) GetEntryForUser(ctx context.Context, bracketID string, userID uuid.UUID) (*bracket.Entry, error) {
	entry, err := s.store.GetEntry(ctx, bracketID, userID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes a single entry, refunding the bracket's entry fee.
// Any payout already settled on the entry is clawed back so the ledger nets
// out to zero for it.
func (s *EntryService) DeleteEntry(ctx context.Context, entryID string) error {
	entry, err := s.store.GetEntryByID(ctx, entryID)
	if err != nil {
		return err
	}
	b, err := s.store.GetBracket(ctx, entry.BracketID.String())
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if b.EntryFee > 0 {
		if _, err := s.ledger.AdjustBalanceTx(ctx, tx, entry.UserID, b.EntryFee); err != nil {
			return err
		}
		description := fmt.Sprintf("%s bracket entry removed - entry fee refunded", b.Name)
		if err := s.ledger.RecordTransactionTx(ctx, tx, entry.UserID, ledger.TypeBracketRefund, b.EntryFee, description); err != nil {
			return err
		}
	}

	if entry.Payout != 0 {
		if _, err := s.ledger.AdjustBalanceTx(ctx, tx, entry.UserID, -entry.Payout); err != nil {
			return err
		}
		description := fmt.Sprintf("%s bracket entry removed - payout reversed", b.Name)
		if err := s.ledger.RecordTransactionTx(ctx, tx, entry.UserID, ledger.TypeBracketAdjustment, -entry.Payout, description); err != nil {
			return err
		}
	}

	if err := s.store.DeleteEntryTx(ctx, tx, entry.ID.String()); err != nil {
		return err
	}
	return tx.Commit()
}
