package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/ledger"
	"github.com/valiantbucks/valiant-bucks/internal/utils"
)

func TestSubmitEntryChargesFeeAndSettles(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 100, 1000)
	bySeed := teamIDBySeed(t, env, b)
	user := newTestUser(t, env, "player", 1000)
	ctx := context.Background()

	outcome := favoriteOutcome(bracket.SizeEight)
	entry, err := env.entries.SubmitEntry(ctx, b.ID.String(), user.ID, picksFromOutcome(outcome, bySeed))
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, int64(900), userBalance(t, env, user.ID))

	records, err := env.ledger.TransactionsByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ledger.TypeBracketEntry, records[0].Type)
	assert.Equal(t, int64(-100), records[0].Amount)

	// A perfect 8-team sheet is worth 120 points.
	playOutcome(t, env, b, outcome, bySeed)

	settled, err := env.entries.GetEntryForUser(ctx, b.ID.String(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, settled)
	assert.Equal(t, 120, settled.Points)
	assert.Equal(t, int64(120000), settled.Payout)
	assert.Equal(t, int64(120900), userBalance(t, env, user.ID))
}

func TestSubmitEntryDuplicate(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 100, 1000)
	bySeed := teamIDBySeed(t, env, b)
	user := newTestUser(t, env, "player", 1000)
	ctx := context.Background()

	picks := picksFromOutcome(favoriteOutcome(bracket.SizeEight), bySeed)
	_, err := env.entries.SubmitEntry(ctx, b.ID.String(), user.ID, picks)
	require.NoError(t, err)

	_, err = env.entries.SubmitEntry(ctx, b.ID.String(), user.ID, picks)
	assert.ErrorIs(t, err, bracket.ErrDuplicateEntry)

	// The rejected attempt must not charge a second fee.
	assert.Equal(t, int64(900), userBalance(t, env, user.ID))
}

func TestSubmitEntryRequiresOpenBracket(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 0, 1000)
	bySeed := teamIDBySeed(t, env, b)
	user := newTestUser(t, env, "player", 1000)
	ctx := context.Background()

	_, err := env.brackets.UpdateBracket(ctx, b.ID.String(),
		UpdateBracketInput{Status: utils.Ptr(bracket.BracketLocked)})
	require.NoError(t, err)

	picks := picksFromOutcome(favoriteOutcome(bracket.SizeEight), bySeed)
	_, err = env.entries.SubmitEntry(ctx, b.ID.String(), user.ID, picks)
	assert.ErrorIs(t, err, bracket.ErrNotOpen)
}

func TestSubmitEntryRequiresSeededGames(t *testing.T) {
	env := newTestEnv(t)
	b := newOpenBracket(t, env, bracket.SizeEight, 0, 1000)
	addTeams(t, env, b)
	bySeed := teamIDBySeed(t, env, b)
	user := newTestUser(t, env, "player", 1000)

	picks := picksFromOutcome(favoriteOutcome(bracket.SizeEight), bySeed)
	_, err := env.entries.SubmitEntry(context.Background(), b.ID.String(), user.ID, picks)
	assert.ErrorIs(t, err, bracket.ErrNotSeeded)
}

func TestSubmitEntryIncompletePicks(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 0, 1000)
	bySeed := teamIDBySeed(t, env, b)
	user := newTestUser(t, env, "player", 1000)

	picks := picksFromOutcome(favoriteOutcome(bracket.SizeEight), bySeed)
	delete(picks[3], 1) // no champion

	_, err := env.entries.SubmitEntry(context.Background(), b.ID.String(), user.ID, picks)
	assert.ErrorIs(t, err, bracket.ErrIncompletePicks)
}

func TestSubmitEntryInconsistentPick(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 0, 1000)
	bySeed := teamIDBySeed(t, env, b)
	user := newTestUser(t, env, "player", 1000)

	// Seed 2 as semifinal winner of the top half is impossible: the entry
	// never advanced seed 2 out of round 1 on that side.
	picks := picksFromOutcome(favoriteOutcome(bracket.SizeEight), bySeed)
	picks[2][1] = bySeed[2]

	_, err := env.entries.SubmitEntry(context.Background(), b.ID.String(), user.ID, picks)
	assert.ErrorIs(t, err, bracket.ErrInvalidPick)
}

func TestSubmitEntryWrongRoundOneTeam(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 0, 1000)
	bySeed := teamIDBySeed(t, env, b)
	user := newTestUser(t, env, "player", 1000)

	picks := picksFromOutcome(favoriteOutcome(bracket.SizeEight), bySeed)
	picks[1][1] = bySeed[2] // game 1 is seeds 1 vs 8

	_, err := env.entries.SubmitEntry(context.Background(), b.ID.String(), user.ID, picks)
	assert.ErrorIs(t, err, bracket.ErrInvalidPick)
}

func TestSubmitEntryInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 100, 1000)
	bySeed := teamIDBySeed(t, env, b)
	user := newTestUser(t, env, "broke", 50)
	ctx := context.Background()

	picks := picksFromOutcome(favoriteOutcome(bracket.SizeEight), bySeed)
	_, err := env.entries.SubmitEntry(ctx, b.ID.String(), user.ID, picks)
	assert.ErrorIs(t, err, bracket.ErrInsufficientBalance)

	assert.Equal(t, int64(50), userBalance(t, env, user.ID))
	entry, err := env.entries.GetEntryForUser(ctx, b.ID.String(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, entry, "entry must not persist when the fee bounces")
}

func TestDeleteEntryNetsToZero(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 100, 1000)
	bySeed := teamIDBySeed(t, env, b)
	user := newTestUser(t, env, "player", 1000)
	ctx := context.Background()

	outcome := favoriteOutcome(bracket.SizeEight)
	entry, err := env.entries.SubmitEntry(ctx, b.ID.String(), user.ID, picksFromOutcome(outcome, bySeed))
	require.NoError(t, err)

	playOutcome(t, env, b, outcome, bySeed)
	require.Equal(t, int64(120900), userBalance(t, env, user.ID))

	// Removing the entry refunds the fee and reverses the settled payout.
	require.NoError(t, env.entries.DeleteEntry(ctx, entry.ID.String()))
	assert.Equal(t, int64(1000), userBalance(t, env, user.ID))

	gone, err := env.entries.GetEntryForUser(ctx, b.ID.String(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
