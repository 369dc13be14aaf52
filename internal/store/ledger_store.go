package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/ledger"
)

type LedgerStore struct {
	db *sqlx.DB
}

func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// AdjustBalanceTx applies a signed delta to a user's balance in a single
// UPDATE so concurrent adjustments against the same user never lose writes.
func (s *LedgerStore) AdjustBalanceTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := tx.GetContext(ctx, &balance,
		"UPDATE users SET balance = balance + ? WHERE id = ? RETURNING balance", delta, userID)
	return balance, err
}

// DebitTx withdraws amount only if the user can cover it. amount must be
// positive.
func (s *LedgerStore) DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET balance = balance - ? WHERE id = ? AND balance >= ?", amount, userID, amount)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return bracket.ErrInsufficientBalance
	}
	return nil
}

func (s *LedgerStore) RecordTransactionTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, txType ledger.TransactionType, amount int64, description string) error {
	record := ledger.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: description,
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO transactions (id, user_id, type, amount, description)
        VALUES (:id, :user_id, :type, :amount, :description)`, record)
	return err
}

func (s *LedgerStore) TransactionsByUser(ctx context.Context, userID uuid.UUID) ([]ledger.Transaction, error) {
	var records []ledger.Transaction
	err := s.db.SelectContext(ctx, &records,
		"SELECT * FROM transactions WHERE user_id = ? ORDER BY created_at DESC", userID)
	return records, err
}
