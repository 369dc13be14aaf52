package bracket

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Picks maps round number -> game number -> picked team ID. Stored as a JSON
// column; picks never change after submission, only the entry's derived
// points and payout do.
type Picks map[int]map[int]uuid.UUID

func (p Picks) Get(round, gameNumber int) (uuid.UUID, bool) {
	games, ok := p[round]
	if !ok {
		return uuid.Nil, false
	}
	id, ok := games[gameNumber]
	return id, ok
}

func (p Picks) Value() (driver.Value, error) {
	if p == nil {
		p = Picks{}
	}
	return json.Marshal(p)
}

func (p *Picks) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("cannot scan %T into Picks", src)
	}
}

type Entry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BracketID uuid.UUID `db:"bracket_id" json:"bracket_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Picks     Picks     `db:"picks" json:"picks"`
	Points    int       `db:"points" json:"points"`
	Payout    int64     `db:"payout" json:"payout"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
