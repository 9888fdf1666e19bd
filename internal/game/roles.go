package game

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// curseAlert is the one public trace a curse leaves. FakeAlert reuses it
// verbatim so the two are indistinguishable in the room.
const curseAlert = "A curse has fallen over the village. Someone's tongue is bound..."

// assignKiller deals the Killer role to one active player, uniformly at
// random. This is the only randomized decision in the engine.
func assignKiller(s *Session) {
	actives := s.ActivePlayers()
	if len(actives) == 0 {
		return
	}
	killer := actives[rand.Intn(len(actives))]
	killer.Role = RoleKiller
	s.KillerID = killer.UserID
}

// killerCheck gates every covert action on role and phase.
func (e *Engine) killerCheck(h *roomHandle, callerID int64) (*Session, error) {
	s := h.session
	if s == nil {
		return nil, ErrNotFound
	}
	if s.State != StateActive {
		return nil, ErrInvalidState
	}
	if s.KillerID == 0 || callerID != s.KillerID {
		return nil, ErrPermissionDenied
	}
	return s, nil
}

func (e *Engine) curse(ctx context.Context, h *roomHandle, callerID, targetID int64) error {
	s, err := e.killerCheck(h, callerID)
	if err != nil {
		return err
	}
	target := s.Player(targetID)
	if target == nil || !target.Active {
		return ErrInvalidTarget
	}
	if s.IsCursed(targetID) {
		return nil // already silenced, nothing to do
	}

	s.Cursed[targetID] = true
	if err := e.persist(ctx, s); err != nil {
		return err
	}
	e.sendRoom(ctx, s.RoomID, curseAlert, nil)
	e.sendPrivate(ctx, callerID, fmt.Sprintf("%s is now cursed.", target.Name()), e.killerPanel(s))
	return nil
}

func (e *Engine) selfCurse(ctx context.Context, h *roomHandle, callerID int64) error {
	s, err := e.killerCheck(h, callerID)
	if err != nil {
		return err
	}
	if s.IsCursed(callerID) {
		return nil
	}

	s.Cursed[callerID] = true
	if err := e.persist(ctx, s); err != nil {
		return err
	}
	e.sendRoom(ctx, s.RoomID, curseAlert, nil)
	e.sendPrivate(ctx, callerID, "You cursed yourself. Play the victim well.", e.killerPanel(s))
	return nil
}

func (e *Engine) liftCurse(ctx context.Context, h *roomHandle, callerID, targetID int64) error {
	s, err := e.killerCheck(h, callerID)
	if err != nil {
		return err
	}
	if !s.IsCursed(targetID) {
		return ErrNotCursed
	}

	delete(s.Cursed, targetID)
	if err := e.persist(ctx, s); err != nil {
		return err
	}
	// No public trace: lifting a curse is as covert as placing one is loud.
	target := s.Player(targetID)
	e.sendPrivate(ctx, callerID, fmt.Sprintf("The curse on %s is lifted.", target.Name()), e.killerPanel(s))
	return nil
}

func (e *Engine) fakeAlert(ctx context.Context, h *roomHandle, callerID int64) error {
	s, err := e.killerCheck(h, callerID)
	if err != nil {
		return err
	}
	// Pure theater: no state changes, no durable write.
	e.sendRoom(ctx, s.RoomID, curseAlert, nil)
	return nil
}

// roomMessage routes a plain group text: a nickname answer during
// registration, or a suppression candidate while the game is live.
func (e *Engine) roomMessage(ctx context.Context, h *roomHandle, callerID int64, messageID int, text string) error {
	s := h.session
	if s == nil {
		return nil
	}
	switch s.State {
	case StateRegistration:
		return e.registerNickname(ctx, h, callerID, text)
	case StateActive, StateVoting:
		e.suppressIfCursed(ctx, s, callerID, messageID)
	}
	return nil
}

// suppressIfCursed schedules a delayed delete of a cursed player's message and
// posts the fixed replacement line. The delay keeps the deletion from looking
// instantaneous. Checked for every active player's message, regardless of role.
func (e *Engine) suppressIfCursed(ctx context.Context, s *Session, callerID int64, messageID int) {
	p := s.Player(callerID)
	if p == nil || !p.Active || !s.IsCursed(callerID) {
		return
	}

	roomID := s.RoomID
	time.AfterFunc(e.settings.CurseDeleteDelay, func() {
		if err := e.msg.DeleteMessage(context.Background(), roomID, messageID); err != nil {
			e.log.Warn("message delete failed",
				zap.Int64("room", roomID), zap.Int("message", messageID), zap.Error(err))
		}
	})
	e.sendRoom(ctx, roomID, fmt.Sprintf("%s tried to speak, but the curse swallowed the words.", p.Name()), nil)
}

// killerPanel is the Killer's private control surface: curse targets, the
// self-curse bluff, lifts for current curses, and the fake alert.
func (e *Engine) killerPanel(s *Session) Keyboard {
	var kb Keyboard
	for _, p := range s.ActivePlayers() {
		if p.UserID == s.KillerID {
			continue
		}
		kb = append(kb, []Button{{
			Text: fmt.Sprintf("Curse %s", p.Name()),
			Data: fmt.Sprintf("%s%d:%d", CallbackCursePrefix, s.RoomID, p.UserID),
		}})
	}
	kb = append(kb, []Button{{
		Text: "Curse yourself (bluff)",
		Data: fmt.Sprintf("%s%d", CallbackSelfCursePrefix, s.RoomID),
	}})
	for id := range s.Cursed {
		if p := s.Player(id); p != nil {
			kb = append(kb, []Button{{
				Text: fmt.Sprintf("Lift curse on %s", p.Name()),
				Data: fmt.Sprintf("%s%d:%d", CallbackLiftPrefix, s.RoomID, id),
			}})
		}
	}
	kb = append(kb, []Button{{
		Text: "Fake alert",
		Data: fmt.Sprintf("%s%d", CallbackFakeAlertPrefix, s.RoomID),
	}})
	return kb
}
