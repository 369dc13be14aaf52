package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/store"
	users "github.com/valiantbucks/valiant-bucks/internal/user"
)

// testEnv wires the full service stack against an in-memory database, the
// same way the router does in production.
type testEnv struct {
	db         *sqlx.DB
	store      *store.BracketStore
	ledger     *store.LedgerStore
	users      *store.UserStore
	brackets   *BracketService
	seeding    *SeedingService
	matches    *MatchService
	entries    *EntryService
	settlement *SettlementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// The pool must stay on one connection or each new conn would see an
	// empty in-memory database.
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := migratesqlite.WithInstance(database.DB, &migratesqlite.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	t.Cleanup(func() { database.Close() })

	bracketStore := store.NewBracketStore(database)
	ledgerStore := store.NewLedgerStore(database)
	settlement := NewSettlementService(database, bracketStore, ledgerStore)

	return &testEnv{
		db:         database,
		store:      bracketStore,
		ledger:     ledgerStore,
		users:      store.NewUserStore(database),
		brackets:   NewBracketService(database, bracketStore, ledgerStore),
		seeding:    NewSeedingService(database, bracketStore),
		matches:    NewMatchService(database, bracketStore, settlement),
		entries:    NewEntryService(database, bracketStore, ledgerStore),
		settlement: settlement,
	}
}

func newTestUser(t *testing.T, env *testEnv, username string, balance int64) *users.User {
	t.Helper()

	user := &users.User{
		ID:       uuid.New(),
		Email:    username + "@example.com",
		Username: username,
		Balance:  balance,
	}
	require.NoError(t, env.users.CreateUser(context.Background(), user))
	return user
}

// newSeededBracket creates a bracket, fills its team list with "Seed N"
// names, and builds the game skeleton.
func newSeededBracket(t *testing.T, env *testEnv, size int, entryFee, payoutPerPoint int64) *bracket.Bracket {
	t.Helper()

	b := newOpenBracket(t, env, size, entryFee, payoutPerPoint)
	addTeams(t, env, b)
	require.NoError(t, env.seeding.SeedGames(context.Background(), b.ID.String()))
	return b
}

func newOpenBracket(t *testing.T, env *testEnv, size int, entryFee, payoutPerPoint int64) *bracket.Bracket {
	t.Helper()

	b, err := env.brackets.CreateBracket(context.Background(), CreateBracketInput{
		Name:           "Test Bracket",
		Gender:         "boys",
		Size:           size,
		EntryFee:       entryFee,
		PayoutPerPoint: payoutPerPoint,
	})
	require.NoError(t, err)
	return b
}

func addTeams(t *testing.T, env *testEnv, b *bracket.Bracket) {
	t.Helper()

	inputs := make([]TeamInput, 0, b.Size)
	for seed := 1; seed <= b.Size; seed++ {
		inputs = append(inputs, TeamInput{Name: fmt.Sprintf("Seed %d", seed), Seed: seed})
	}
	require.NoError(t, env.seeding.ReplaceTeams(context.Background(), b.ID.String(), inputs))
}

func teamIDBySeed(t *testing.T, env *testEnv, b *bracket.Bracket) map[int]uuid.UUID {
	t.Helper()

	teams, err := env.store.GetTeams(context.Background(), b.ID.String())
	require.NoError(t, err)
	out := make(map[int]uuid.UUID, len(teams))
	for _, team := range teams {
		out[team.Seed] = team.ID
	}
	return out
}

// favoriteOutcome maps every game position to the seed that advances when
// the better (lower) seed always wins.
func favoriteOutcome(size int) map[int]map[int]int {
	outcome := make(map[int]map[int]int, bracket.Rounds(size))

	prev := make(map[int]int)
	outcome[1] = make(map[int]int)
	for i, pair := range bracket.FirstRoundPairs(size) {
		win := pair[0]
		if pair[1] < win {
			win = pair[1]
		}
		outcome[1][i+1] = win
		prev[i+1] = win
	}

	for round := 2; round <= bracket.Rounds(size); round++ {
		outcome[round] = make(map[int]int)
		next := make(map[int]int)
		for n := 1; n <= bracket.GamesInRound(size, round); n++ {
			win := prev[2*n-1]
			if prev[2*n] < win {
				win = prev[2*n]
			}
			outcome[round][n] = win
			next[n] = win
		}
		prev = next
	}
	return outcome
}

func picksFromOutcome(outcome map[int]map[int]int, bySeed map[int]uuid.UUID) bracket.Picks {
	picks := make(bracket.Picks, len(outcome))
	for round, games := range outcome {
		picks[round] = make(map[int]uuid.UUID, len(games))
		for n, seed := range games {
			picks[round][n] = bySeed[seed]
		}
	}
	return picks
}

// playOutcome declares winners round by round through the match service.
func playOutcome(t *testing.T, env *testEnv, b *bracket.Bracket, outcome map[int]map[int]int, bySeed map[int]uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	games, err := env.store.GetGames(ctx, b.ID.String())
	require.NoError(t, err)
	gameID := make(map[[2]int]string, len(games))
	for _, g := range games {
		gameID[[2]int{g.Round, g.GameNumber}] = g.ID.String()
	}

	for round := 1; round <= bracket.Rounds(b.Size); round++ {
		for n := 1; n <= bracket.GamesInRound(b.Size, round); n++ {
			winner := bySeed[outcome[round][n]]
			require.NoError(t,
				env.matches.SetWinner(ctx, b.ID.String(), gameID[[2]int{round, n}], &winner),
				"declaring round %d game %d", round, n)
		}
	}
}

func findGame(t *testing.T, env *testEnv, b *bracket.Bracket, round, number int) *bracket.Game {
	t.Helper()

	games, err := env.store.GetGames(context.Background(), b.ID.String())
	require.NoError(t, err)
	for i := range games {
		if games[i].Round == round && games[i].GameNumber == number {
			return &games[i]
		}
	}
	t.Fatalf("game %d-%d not found", round, number)
	return nil
}

func userBalance(t *testing.T, env *testEnv, userID uuid.UUID) int64 {
	t.Helper()

	user, err := env.users.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user.Balance
}
