package game

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Recover rebuilds in-memory sessions from the store after a restart and
// re-arms whatever timers were in flight. A voting deadline that passed while
// the process was down is tallied immediately; a registration timeout is
// restarted in full, since its remaining time is not persisted. Extending a
// player's window only ever favors the player.
func (e *Engine) Recover(ctx context.Context) error {
	sessions, err := e.store.Active(ctx)
	if err != nil {
		return err
	}

	for _, s := range sessions {
		h := e.handle(s.RoomID)
		h.mu.Lock()
		h.session = s

		switch s.State {
		case StateVoting:
			remaining := time.Until(s.VoteDeadline)
			if remaining <= 0 {
				if err := e.tally(ctx, h); err != nil {
					e.log.Error("recovery tally failed", zap.Int64("room", s.RoomID), zap.Error(err))
				}
			} else {
				e.armTimer(s.RoomID, h, slotVote, remaining, event{kind: evVoteTimeout})
			}
		case StateRegistration:
			if err := e.resumeRegistration(ctx, h); err != nil {
				e.log.Error("recovery registration failed", zap.Int64("room", s.RoomID), zap.Error(err))
			}
		}
		h.mu.Unlock()
	}

	e.log.Info("sessions recovered", zap.Int("count", len(sessions)))
	return nil
}

// resumeRegistration re-prompts whichever player the cursor points at. The
// sequencer's skip conditions make this safe to re-enter: players who already
// answered are passed over and the awaited player gets a fresh full timeout.
func (e *Engine) resumeRegistration(ctx context.Context, h *roomHandle) error {
	h.session.AwaitingNickname = 0
	return e.advanceRegistration(ctx, h)
}
