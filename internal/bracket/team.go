package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BracketID uuid.UUID `db:"bracket_id" json:"bracket_id"`
	Name      string    `db:"name" json:"name"`
	Seed      int       `db:"seed" json:"seed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
