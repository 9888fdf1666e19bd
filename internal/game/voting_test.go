package game_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"killergame/internal/game"
)

func TestCallVote(t *testing.T) {
	ctx := context.Background()

	t.Run("any active player may call one", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)

		require.NoError(t, h.engine.CallVote(ctx, testRoom, 2))
		s := h.session(t)
		assert.Equal(t, game.StateVoting, s.State)
		assert.Empty(t, s.Votes)
		assert.False(t, s.VoteDeadline.IsZero())
	})

	t.Run("outsiders may not", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)

		err := h.engine.CallVote(ctx, testRoom, 999)
		assert.ErrorIs(t, err, game.ErrPermissionDenied)
	})

	t.Run("only from the active phase", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)
		require.NoError(t, h.engine.CallVote(ctx, testRoom, 2))

		err := h.engine.CallVote(ctx, testRoom, 3)
		assert.ErrorIs(t, err, game.ErrInvalidState)
	})

	t.Run("ballot lists every active player", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)
		require.NoError(t, h.engine.CallVote(ctx, testRoom, 2))

		kb := h.msgr.room[len(h.msgr.room)-1].kb
		assert.Len(t, kb, 3)
	})
}

func TestSubmitVote(t *testing.T) {
	ctx := context.Background()

	t.Run("first vote per player wins", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3, 4)
		require.NoError(t, h.engine.CallVote(ctx, testRoom, 1))

		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, 1, 2))
		err := h.engine.SubmitVote(ctx, testRoom, 1, 3)
		assert.ErrorIs(t, err, game.ErrAlreadyVoted)
		assert.Equal(t, int64(2), h.session(t).Votes[1])
	})

	t.Run("rejects inactive targets", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)
		require.NoError(t, h.engine.CallVote(ctx, testRoom, 1))

		err := h.engine.SubmitVote(ctx, testRoom, 1, 999)
		assert.ErrorIs(t, err, game.ErrInvalidTarget)
	})

	t.Run("rejects votes outside the voting phase", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)

		err := h.engine.SubmitVote(ctx, testRoom, 1, 2)
		assert.ErrorIs(t, err, game.ErrInvalidState)
	})
}

func TestVoteResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("unique top villager is eliminated and play resumes", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3, 4)
		killer, villagers := h.killerAndVillagers(t)
		scapegoat := villagers[0]

		// Curse the scapegoat first; elimination must clear it.
		require.NoError(t, h.engine.Curse(ctx, testRoom, killer, scapegoat))

		require.NoError(t, h.engine.CallVote(ctx, testRoom, villagers[1]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, killer, scapegoat))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[1], scapegoat))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[2], scapegoat))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, scapegoat, killer))

		s := h.session(t)
		assert.Equal(t, game.StateActive, s.State)
		assert.False(t, s.Player(scapegoat).Active)
		assert.False(t, s.IsCursed(scapegoat))
		assert.Empty(t, s.Votes)
		assert.True(t, s.VoteDeadline.IsZero())
		// Roles stay hidden while the game continues.
		assert.False(t, h.msgr.roomSaid(s.Player(killer).Name()+" all along"))
	})

	t.Run("unique top killer means the villagers win", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)
		killer, villagers := h.killerAndVillagers(t)

		require.NoError(t, h.engine.CallVote(ctx, testRoom, villagers[0]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, killer, villagers[0]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[0], killer))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[1], killer))

		s := h.session(t)
		assert.Equal(t, game.StateEnded, s.State)
		assert.True(t, h.msgr.roomSaid("Villagers win"))
		assert.True(t, h.msgr.roomSaid(s.Player(killer).Name()))
	})

	t.Run("a tie lets the killer walk free", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)
		killer, villagers := h.killerAndVillagers(t)

		require.NoError(t, h.engine.CallVote(ctx, testRoom, villagers[0]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[0], killer))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[1], villagers[0]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, killer, villagers[1]))

		s := h.session(t)
		assert.Equal(t, game.StateEnded, s.State)
		assert.True(t, h.msgr.roomSaid("The Killer wins"))
		assert.True(t, h.msgr.roomSaid(s.Player(killer).Name()))
	})

	t.Run("deadline closes the vote with whatever came in", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)
		killer, villagers := h.killerAndVillagers(t)

		require.NoError(t, h.engine.CallVote(ctx, testRoom, villagers[0]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[0], killer))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[1], killer))

		// Killer abstains. The deadline tallies two votes against them.
		require.Eventually(t, func() bool {
			return h.session(t).State == game.StateEnded
		}, time.Second, 5*time.Millisecond)
		assert.True(t, h.msgr.roomSaid("Villagers win"))
	})

	t.Run("nobody voting at all counts as a tie", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)
		_, villagers := h.killerAndVillagers(t)

		require.NoError(t, h.engine.CallVote(ctx, testRoom, villagers[0]))
		require.Eventually(t, func() bool {
			return h.session(t).State == game.StateEnded
		}, time.Second, 5*time.Millisecond)
		assert.True(t, h.msgr.roomSaid("could not agree"))
	})

	t.Run("eliminating the last villager hands the killer the win", func(t *testing.T) {
		h := newHarness(fastSettings(), 1)
		h.startActiveGame(t, 1, 2, 3)
		killer, villagers := h.killerAndVillagers(t)

		// Round one: villager 0 goes down 2 to 1.
		require.NoError(t, h.engine.CallVote(ctx, testRoom, villagers[0]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, killer, villagers[0]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[1], villagers[0]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[0], villagers[1]))
		require.Equal(t, game.StateActive, h.session(t).State)

		// Round two: the killer turns on the last villager.
		require.NoError(t, h.engine.CallVote(ctx, testRoom, killer))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, killer, villagers[1]))
		require.NoError(t, h.engine.SubmitVote(ctx, testRoom, villagers[1], villagers[1]))

		s := h.session(t)
		assert.Equal(t, game.StateEnded, s.State)
		assert.True(t, h.msgr.roomSaid("no Villagers remain"))
	})
}
