package ledger

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType tags a ledger record. Every balance delta applied anywhere
// in the system produces exactly one transaction with a matching amount.
type TransactionType string

const (
	TypeBracketEntry      TransactionType = "bracket_entry"
	TypeBracketPayout     TransactionType = "bracket_payout"
	TypeBracketAdjustment TransactionType = "bracket_adjustment"
	TypeBracketRefund     TransactionType = "bracket_refund"
)

// Transaction is an append-only record of a balance delta. Positive amounts
// credit the user, negative amounts debit.
type Transaction struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	Type        TransactionType `db:"type" json:"type"`
	Amount      int64           `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
