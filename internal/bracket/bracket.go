package bracket

import (
	"time"

	"github.com/google/uuid"
)

type BracketStatus string

const (
	BracketOpen       BracketStatus = "open"
	BracketLocked     BracketStatus = "locked"
	BracketInProgress BracketStatus = "in-progress"
	BracketCompleted  BracketStatus = "completed"
)

// Valid bracket sizes. Size determines the round count: 3 rounds for 8
// teams, 4 rounds for 16.
const (
	SizeEight   = 8
	SizeSixteen = 16
)

type Bracket struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	Name           string        `db:"name" json:"name"`
	Season         *string       `db:"season" json:"season"`
	Gender         string        `db:"gender" json:"gender"`
	Size           int           `db:"size" json:"size"`
	EntryFee       int64         `db:"entry_fee" json:"entry_fee"`
	PayoutPerPoint int64         `db:"payout_per_point" json:"payout_per_point"`
	Status         BracketStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

func ValidSize(size int) bool {
	return size == SizeEight || size == SizeSixteen
}

func ValidStatus(status BracketStatus) bool {
	switch status {
	case BracketOpen, BracketLocked, BracketInProgress, BracketCompleted:
		return true
	}
	return false
}
