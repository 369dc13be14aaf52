package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/utils"
)

func TestCreateBracketValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreateBracketInput
		wantErr error
	}{
		{
			name:    "missing name",
			input:   CreateBracketInput{Size: 8},
			wantErr: bracket.ErrInvalidInput,
		},
		{
			name:    "unsupported size",
			input:   CreateBracketInput{Name: "Bad", Size: 12},
			wantErr: bracket.ErrInvalidSize,
		},
		{
			name:    "negative fee",
			input:   CreateBracketInput{Name: "Bad", Size: 8, EntryFee: -1},
			wantErr: bracket.ErrInvalidInput,
		},
		{
			name:    "unknown status",
			input:   CreateBracketInput{Name: "Bad", Size: 8, Status: "archived"},
			wantErr: bracket.ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.brackets.CreateBracket(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateBracketDefaultsToOpen(t *testing.T) {
	env := newTestEnv(t)

	b, err := env.brackets.CreateBracket(context.Background(), CreateBracketInput{
		Name: "March", Gender: "girls", Size: bracket.SizeSixteen,
	})
	require.NoError(t, err)
	assert.Equal(t, bracket.BracketOpen, b.Status)
}

func TestUpdateBracketSizeLockedAfterSeeding(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 0, 1000)

	_, err := env.brackets.UpdateBracket(context.Background(), b.ID.String(),
		UpdateBracketInput{Size: utils.Ptr(bracket.SizeSixteen)})
	assert.ErrorIs(t, err, bracket.ErrAlreadySeeded)
}

func TestActiveBracket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	data, err := env.brackets.ActiveBracket(ctx, "girls")
	require.NoError(t, err)
	assert.Nil(t, data, "no bracket for the tag yet")

	b := newSeededBracket(t, env, bracket.SizeEight, 0, 1000)

	data, err = env.brackets.ActiveBracket(ctx, "boys")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, b.ID, data.Bracket.ID)
	assert.Len(t, data.Teams, 8)
	assert.Len(t, data.Games, 7)

	// The boys bracket does not answer for the girls tag.
	data, err = env.brackets.ActiveBracket(ctx, "girls")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDeleteBracketRefundsEntrants(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 100, 1000)
	bySeed := teamIDBySeed(t, env, b)
	ctx := context.Background()

	picks := picksFromOutcome(favoriteOutcome(bracket.SizeEight), bySeed)
	alice := newTestUser(t, env, "alice", 1000)
	bob := newTestUser(t, env, "bob", 500)
	_, err := env.entries.SubmitEntry(ctx, b.ID.String(), alice.ID, picks)
	require.NoError(t, err)
	_, err = env.entries.SubmitEntry(ctx, b.ID.String(), bob.ID, picks)
	require.NoError(t, err)

	require.NoError(t, env.brackets.DeleteBracket(ctx, b.ID.String()))

	assert.Equal(t, int64(1000), userBalance(t, env, alice.ID))
	assert.Equal(t, int64(500), userBalance(t, env, bob.ID))

	_, err = env.store.GetBracket(ctx, b.ID.String())
	assert.Error(t, err, "bracket rows are gone")
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	b := newSeededBracket(t, env, bracket.SizeEight, 0, 1000)
	bySeed := teamIDBySeed(t, env, b)
	ctx := context.Background()

	// Chalk backs the favorites everywhere; the believer calls the seed 8
	// upset in round 1.
	chalk := newTestUser(t, env, "chalk", 1000)
	outcome := favoriteOutcome(bracket.SizeEight)
	_, err := env.entries.SubmitEntry(ctx, b.ID.String(), chalk.ID, picksFromOutcome(outcome, bySeed))
	require.NoError(t, err)

	believer := newTestUser(t, env, "believer", 1000)
	upsetPicks := picksFromOutcome(outcome, bySeed)
	upsetPicks[1][1] = bySeed[8]
	upsetPicks[2][1] = bySeed[8]
	upsetPicks[3][1] = bySeed[8]
	_, err = env.entries.SubmitEntry(ctx, b.ID.String(), believer.ID, upsetPicks)
	require.NoError(t, err)

	// Seed 8 really does win its opener, then the favorites hold.
	played := favoriteOutcome(bracket.SizeEight)
	played[1][1] = 8
	played[2][1] = 4 // 8 vs 4, favorite advances
	played[3][1] = 2 // final is 4 vs 2
	playOutcome(t, env, b, played, bySeed)

	stats, err := env.brackets.Stats(ctx, b.ID.String())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalEntries)
	require.Len(t, stats.ChampionPicks, 2)
	assert.Equal(t, 1, stats.ChampionPicks[0].Count)
	assert.Equal(t, 1, stats.ChampionPicks[1].Count)

	require.NotNil(t, stats.RarestUpset)
	assert.Equal(t, 1, stats.RarestUpset.Round)
	assert.Equal(t, 1, stats.RarestUpset.GameNumber)
	assert.Equal(t, 8, stats.RarestUpset.WinnerSeed)
	assert.Equal(t, 1, stats.RarestUpset.LoserSeed)
	assert.Equal(t, 1, stats.RarestUpset.PickedBy, "only the believer called it")
}
