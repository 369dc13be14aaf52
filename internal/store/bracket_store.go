package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
)

type BracketStore struct {
	db *sqlx.DB
}

func NewBracketStore(db *sqlx.DB) *BracketStore {
	return &BracketStore{db: db}
}

func (s *BracketStore) CreateBracket(ctx context.Context, b *bracket.Bracket) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO brackets (id, name, season, gender, size, entry_fee, payout_per_point, status)
        VALUES (:id, :name, :season, :gender, :size, :entry_fee, :payout_per_point, :status)`, b)
	return err
}

func (s *BracketStore) UpdateBracket(ctx context.Context, b *bracket.Bracket) error {
	_, err := s.db.NamedExecContext(ctx, `UPDATE brackets SET
        name = :name,
        season = :season,
        gender = :gender,
        entry_fee = :entry_fee,
        payout_per_point = :payout_per_point,
        status = :status
        WHERE id = :id`, b)
	return err
}

func (s *BracketStore) UpdateBracketStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status bracket.BracketStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE brackets SET status = ? WHERE id = ?", status, id)
	return err
}

func (s *BracketStore) GetBracket(ctx context.Context, id string) (*bracket.Bracket, error) {
	var b bracket.Bracket
	err := s.db.GetContext(ctx, &b, "SELECT * FROM brackets WHERE id = ?", id)
	return &b, err
}

func (s *BracketStore) ListBrackets(ctx context.Context) ([]bracket.Bracket, error) {
	var brackets []bracket.Bracket
	err := s.db.SelectContext(ctx, &brackets, "SELECT * FROM brackets ORDER BY created_at DESC")
	return brackets, err
}

// ActiveBracket returns the newest bracket for a gender tag, regardless of
// lifecycle stage, so a completed bracket stays visible until the next one
// is created.
func (s *BracketStore) ActiveBracket(ctx context.Context, gender string) (*bracket.Bracket, error) {
	var b bracket.Bracket
	err := s.db.GetContext(ctx, &b,
		"SELECT * FROM brackets WHERE gender = ? ORDER BY created_at DESC LIMIT 1", gender)
	return &b, err
}

func (s *BracketStore) DeleteBracketTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	for _, q := range []string{
		"DELETE FROM bracket_entries WHERE bracket_id = ?",
		"DELETE FROM bracket_games WHERE bracket_id = ?",
		"DELETE FROM bracket_teams WHERE bracket_id = ?",
		"DELETE FROM brackets WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *BracketStore) ReplaceTeamsTx(ctx context.Context, tx *sqlx.Tx, bracketID string, teams []bracket.Team) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM bracket_teams WHERE bracket_id = ?", bracketID); err != nil {
		return err
	}
	if len(teams) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO bracket_teams (id, bracket_id, name, seed)
        VALUES (:id, :bracket_id, :name, :seed)`, teams)
	return err
}

func (s *BracketStore) GetTeams(ctx context.Context, bracketID string) ([]bracket.Team, error) {
	var teams []bracket.Team
	err := s.db.SelectContext(ctx, &teams, "SELECT * FROM bracket_teams WHERE bracket_id = ? ORDER BY seed ASC", bracketID)
	return teams, err
}

func (s *BracketStore) CreateGamesTx(ctx context.Context, tx *sqlx.Tx, games []bracket.Game) error {
	if len(games) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO bracket_games (id, bracket_id, round, game_number, team1_id, team2_id, winner_team_id, status)
        VALUES (:id, :bracket_id, :round, :game_number, :team1_id, :team2_id, :winner_team_id, :status)`, games)
	return err
}

func (s *BracketStore) GetGames(ctx context.Context, bracketID string) ([]bracket.Game, error) {
	var games []bracket.Game
	err := s.db.SelectContext(ctx, &games,
		"SELECT * FROM bracket_games WHERE bracket_id = ? ORDER BY round ASC, game_number ASC", bracketID)
	return games, err
}

func (s *BracketStore) GetGamesTx(ctx context.Context, tx *sqlx.Tx, bracketID string) ([]bracket.Game, error) {
	var games []bracket.Game
	err := tx.SelectContext(ctx, &games,
		"SELECT * FROM bracket_games WHERE bracket_id = ? ORDER BY round ASC, game_number ASC", bracketID)
	return games, err
}

func (s *BracketStore) CountGames(ctx context.Context, bracketID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM bracket_games WHERE bracket_id = ?", bracketID)
	return count, err
}

func (s *BracketStore) GetGameTx(ctx context.Context, tx *sqlx.Tx, bracketID, gameID string) (*bracket.Game, error) {
	var game bracket.Game
	err := tx.GetContext(ctx, &game, "SELECT * FROM bracket_games WHERE id = ? AND bracket_id = ?", gameID, bracketID)
	return &game, err
}

func (s *BracketStore) UpdateGameTx(ctx context.Context, tx *sqlx.Tx, game *bracket.Game) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE bracket_games SET
        team1_id = :team1_id,
        team2_id = :team2_id,
        winner_team_id = :winner_team_id,
        status = :status
        WHERE id = :id`, game)
	return err
}

func (s *BracketStore) CreateEntryTx(ctx context.Context, tx *sqlx.Tx, entry *bracket.Entry) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO bracket_entries (id, bracket_id, user_id, picks, points, payout)
        VALUES (:id, :bracket_id, :user_id, :picks, :points, :payout)`, entry)
	return err
}

func (s *BracketStore) GetEntry(ctx context.Context, bracketID, userID string) (*bracket.Entry, error) {
	var entry bracket.Entry
	err := s.db.GetContext(ctx, &entry,
		"SELECT * FROM bracket_entries WHERE bracket_id = ? AND user_id = ?", bracketID, userID)
	return &entry, err
}

func (s *BracketStore) GetEntryByID(ctx context.Context, entryID string) (*bracket.Entry, error) {
	var entry bracket.Entry
	err := s.db.GetContext(ctx, &entry, "SELECT * FROM bracket_entries WHERE id = ?", entryID)
	return &entry, err
}

func (s *BracketStore) GetEntries(ctx context.Context, bracketID string) ([]bracket.Entry, error) {
	var entries []bracket.Entry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM bracket_entries WHERE bracket_id = ? ORDER BY created_at ASC", bracketID)
	return entries, err
}

func (s *BracketStore) GetEntriesTx(ctx context.Context, tx *sqlx.Tx, bracketID string) ([]bracket.Entry, error) {
	var entries []bracket.Entry
	err := tx.SelectContext(ctx, &entries,
		"SELECT * FROM bracket_entries WHERE bracket_id = ? ORDER BY created_at ASC", bracketID)
	return entries, err
}

// UpdateEntryScoreTx persists recomputed points and payout. Picks are never
// touched after submission.
func (s *BracketStore) UpdateEntryScoreTx(ctx context.Context, tx *sqlx.Tx, entryID string, points int, payout int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE bracket_entries SET points = ?, payout = ? WHERE id = ?", points, payout, entryID)
	return err
}

func (s *BracketStore) DeleteEntryTx(ctx context.Context, tx *sqlx.Tx, entryID string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM bracket_entries WHERE id = ?", entryID)
	return err
}

type LeaderboardRow struct {
	EntryID  string `db:"entry_id" json:"entry_id"`
	UserID   string `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
	Points   int    `db:"points" json:"points"`
	Payout   int64  `db:"payout" json:"payout"`
}

// Leaderboard ranks entries by points with payout as tiebreak, excluding
// administrative accounts.
func (s *BracketStore) Leaderboard(ctx context.Context, bracketID string) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := s.db.SelectContext(ctx, &rows, `SELECT
        e.id AS entry_id, e.user_id, u.username, e.points, e.payout
        FROM bracket_entries e
        JOIN users u ON u.id = e.user_id
        WHERE e.bracket_id = ? AND u.is_admin = 0
        ORDER BY e.points DESC, e.payout DESC, e.created_at ASC`, bracketID)
	return rows, err
}
