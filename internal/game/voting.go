package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

func (e *Engine) callVote(ctx context.Context, h *roomHandle, callerID int64) error {
	s := h.session
	if s == nil {
		return ErrNotFound
	}
	if s.State != StateActive {
		return ErrInvalidState
	}
	caller := s.Player(callerID)
	if caller == nil || !caller.Active {
		return ErrPermissionDenied
	}

	s.State = StateVoting
	s.Votes = make(map[int64]int64)
	s.VoteDeadline = time.Now().Add(e.settings.VoteDeadline)
	if err := e.persist(ctx, s); err != nil {
		return err
	}
	e.sendRoom(ctx, s.RoomID,
		fmt.Sprintf("%s calls a vote! Pick who you think the Killer is. The vote closes in %s.",
			caller.Name(), e.settings.VoteDeadline),
		e.ballotKeyboard(s))
	e.armTimer(s.RoomID, h, slotVote, e.settings.VoteDeadline, event{kind: evVoteTimeout})
	return nil
}

func (e *Engine) submitVote(ctx context.Context, h *roomHandle, voterID, targetID int64) error {
	s := h.session
	if s == nil {
		return ErrNotFound
	}
	if s.State != StateVoting {
		return ErrInvalidState
	}
	voter := s.Player(voterID)
	if voter == nil || !voter.Active {
		return ErrPermissionDenied
	}
	if _, voted := s.Votes[voterID]; voted {
		return ErrAlreadyVoted
	}
	target := s.Player(targetID)
	if target == nil || !target.Active {
		return ErrInvalidTarget
	}

	s.Votes[voterID] = targetID
	if err := e.persist(ctx, s); err != nil {
		return err
	}
	if len(s.Votes) >= s.ActiveCount() {
		e.disarmTimer(h, slotVote)
		return e.tally(ctx, h)
	}
	return nil
}

func (e *Engine) voteTimeout(ctx context.Context, h *roomHandle) error {
	s := h.session
	if s == nil || s.State != StateVoting {
		return nil
	}
	return e.tally(ctx, h)
}

// tally resolves the round. A unique top target is eliminated (or unmasked,
// if it is the Killer); any tie, including nobody voting at all, lets the
// Killer walk free and win. The room mutex must be held.
func (e *Engine) tally(ctx context.Context, h *roomHandle) error {
	s := h.session
	counts := make(map[int64]int)
	for _, target := range s.Votes {
		counts[target]++
	}

	var top int64
	max, tied := 0, false
	for target, n := range counts {
		switch {
		case n > max:
			top, max, tied = target, n, false
		case n == max:
			tied = true
		}
	}
	if len(counts) == 0 {
		tied = true // nobody voted: a universal tie
	}

	if tied {
		return e.endWithKillerWin(ctx, h, "The village could not agree.")
	}
	if top == s.KillerID {
		return e.endWithVillagerWin(ctx, h)
	}
	return e.eliminate(ctx, h, top)
}

// eliminate removes a mis-accused Villager and either resumes play or, if no
// Villagers are left standing, hands the Killer the win.
func (e *Engine) eliminate(ctx context.Context, h *roomHandle, targetID int64) error {
	s := h.session
	target := s.Player(targetID)
	target.Active = false
	delete(s.Cursed, targetID)
	s.Votes = make(map[int64]int64)
	s.VoteDeadline = time.Time{}

	if s.ActiveVillagerCount() == 0 {
		return e.endWithKillerWin(ctx, h,
			fmt.Sprintf("%s was not the Killer, and no Villagers remain.", target.Name()))
	}

	s.State = StateActive
	if err := e.persist(ctx, s); err != nil {
		return err
	}
	e.sendRoom(ctx, s.RoomID,
		fmt.Sprintf("%s is voted out... but was not the Killer. The game goes on.", target.Name()),
		nil)
	e.log.Info("player eliminated",
		zap.Int64("room", s.RoomID), zap.Int64("player", targetID))
	return nil
}

func (e *Engine) endWithKillerWin(ctx context.Context, h *roomHandle, reason string) error {
	s := h.session
	killer := s.Killer()
	s.State = StateEnded
	s.Votes = make(map[int64]int64)
	s.VoteDeadline = time.Time{}
	e.disarmAll(h)
	if err := e.persist(ctx, s); err != nil {
		return err
	}

	name := "the Killer"
	if killer != nil {
		name = killer.Name()
	}
	e.sendRoom(ctx, s.RoomID,
		fmt.Sprintf("%s The Killer wins: it was %s all along!", reason, name), nil)
	e.log.Info("game over",
		zap.Int64("room", s.RoomID), zap.String("winner", "killer"))
	return nil
}

func (e *Engine) endWithVillagerWin(ctx context.Context, h *roomHandle) error {
	s := h.session
	killer := s.Killer()
	s.State = StateEnded
	s.Votes = make(map[int64]int64)
	s.VoteDeadline = time.Time{}
	e.disarmAll(h)
	if err := e.persist(ctx, s); err != nil {
		return err
	}

	e.sendRoom(ctx, s.RoomID,
		fmt.Sprintf("The village got it right: %s was the Killer! Villagers win.", killer.Name()), nil)
	e.log.Info("game over",
		zap.Int64("room", s.RoomID), zap.String("winner", "villagers"))
	return nil
}

func (e *Engine) ballotKeyboard(s *Session) Keyboard {
	var kb Keyboard
	for _, p := range s.ActivePlayers() {
		kb = append(kb, []Button{{
			Text: p.Name(),
			Data: fmt.Sprintf("%s%d", CallbackVotePrefix, p.UserID),
		}})
	}
	return kb
}
