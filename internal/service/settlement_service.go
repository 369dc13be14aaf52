package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/ledger"
	"github.com/valiantbucks/valiant-bucks/internal/store"
)

// SettlementService recomputes entry scores against confirmed winners and
// reconciles payouts against the ledger. Only the delta between the new and
// previously recorded payout is ever applied, so running it repeatedly is
// safe: with no winner changes the net ledger effect is zero.
type SettlementService struct {
	db     *sqlx.DB
	store  *store.BracketStore
	ledger *store.LedgerStore
}

func NewSettlementService(db *sqlx.DB, store *store.BracketStore, ledgerStore *store.LedgerStore) *SettlementService {
	return &SettlementService{db: db, store: store, ledger: ledgerStore}
}

// RecalcEntries re-scores every entry in a bracket. Also exposed standalone
// so a failed settlement can be reconciled by a later pass.
func (s *SettlementService) RecalcEntries(ctx context.Context, bracketID string) error {
	b, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	games, err := s.store.GetGamesTx(ctx, tx, bracketID)
	if err != nil {
		return err
	}

	if err := s.RecalcEntriesTx(ctx, tx, b, games); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SettlementService) RecalcEntriesTx(ctx context.Context, tx *sqlx.Tx, b *bracket.Bracket, games []bracket.Game) error {
	winners := bracket.WinnersByRound(games)

	entries, err := s.store.GetEntriesTx(ctx, tx, b.ID.String())
	if err != nil {
		return err
	}

	for _, entry := range entries {
		points := bracket.ComputePoints(entry.Picks, winners, b.Size)
		payout := int64(points) * b.PayoutPerPoint
		delta := payout - entry.Payout

		if delta != 0 {
			if _, err := s.ledger.AdjustBalanceTx(ctx, tx, entry.UserID, delta); err != nil {
				return fmt.Errorf("failed to adjust balance for entry %s: %w", entry.ID, err)
			}
			txType := ledger.TypeBracketPayout
			if delta < 0 {
				txType = ledger.TypeBracketAdjustment
			}
			description := fmt.Sprintf("%s bracket payout update", b.Name)
			if err := s.ledger.RecordTransactionTx(ctx, tx, entry.UserID, txType, delta, description); err != nil {
				return fmt.Errorf("failed to record transaction for entry %s: %w", entry.ID, err)
			}
		}

		// Stored points/payout change only after the ledger delta is in the
		// same transaction, so they can never drift from applied deltas.
		if points != entry.Points || payout != entry.Payout {
			if err := s.store.UpdateEntryScoreTx(ctx, tx, entry.ID.String(), points, payout); err != nil {
				return fmt.Errorf("failed to update entry %s: %w", entry.ID, err)
			}
		}
	}
	return nil
}
