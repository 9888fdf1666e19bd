package game

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// advanceRegistration walks the roster from the cursor until it finds the
// next player who still owes a nickname, prompts them, and arms their
// timeout. When the cursor runs off the end, the game goes live.
// The room mutex must be held.
func (e *Engine) advanceRegistration(ctx context.Context, h *roomHandle) error {
	s := h.session
	for s.RegistrationCursor < len(s.Players) {
		p := s.Players[s.RegistrationCursor]
		if !p.Active || p.Nickname != "" {
			s.RegistrationCursor++
			continue
		}
		s.AwaitingNickname = p.UserID
		if err := e.persist(ctx, s); err != nil {
			return err
		}
		e.sendRoom(ctx, s.RoomID,
			fmt.Sprintf("%s, reply with the nickname you want to play under. You have %s.",
				p.DisplayName, e.settings.NicknameTimeout),
			nil)
		e.armTimer(s.RoomID, h, slotNickname, e.settings.NicknameTimeout,
			event{kind: evNicknameTimeout, target: p.UserID})
		return nil
	}
	return e.finishRegistration(ctx, h)
}

// registerNickname handles a text answer from the awaited player. Texts from
// anyone else during registration are dropped without comment.
func (e *Engine) registerNickname(ctx context.Context, h *roomHandle, callerID int64, text string) error {
	s := h.session
	if s.AwaitingNickname != callerID {
		return nil
	}
	nickname := strings.TrimSpace(text)
	if nickname == "" {
		return nil
	}
	p := s.Player(callerID)
	if p == nil || p.Nickname != "" {
		return nil
	}

	// Disarming here races the timeout callback for the same slot; the
	// generation bump guarantees exactly one of the two advances the cursor.
	e.disarmTimer(h, slotNickname)
	p.Nickname = nickname
	s.AwaitingNickname = 0
	s.RegistrationCursor++
	return e.advanceRegistration(ctx, h)
}

// nicknameTimeout fires when the awaited player never answered. The player
// drops out; if that leaves too few to play, the whole session folds.
func (e *Engine) nicknameTimeout(ctx context.Context, h *roomHandle, playerID int64) error {
	s := h.session
	if s == nil || s.State != StateRegistration || s.AwaitingNickname != playerID {
		return nil
	}
	p := s.Player(playerID)
	if p == nil {
		return nil
	}

	p.Active = false
	s.AwaitingNickname = 0
	s.RegistrationCursor++

	if s.ActiveCount() < e.settings.MinPlayers {
		s.State = StateEnded
		if err := e.persist(ctx, s); err != nil {
			return err
		}
		e.sendRoom(ctx, s.RoomID,
			fmt.Sprintf("%s never answered and too few players remain. The game is called off.", p.DisplayName),
			nil)
		e.log.Info("registration aborted",
			zap.Int64("room", s.RoomID), zap.Int("active", s.ActiveCount()))
		return nil
	}

	if err := e.persist(ctx, s); err != nil {
		return err
	}
	e.sendRoom(ctx, s.RoomID,
		fmt.Sprintf("%s did not answer in time and sits this one out.", p.DisplayName), nil)
	return e.advanceRegistration(ctx, h)
}

// finishRegistration fills in any missing nicknames with raw handles, deals
// the Killer role, and opens active play.
func (e *Engine) finishRegistration(ctx context.Context, h *roomHandle) error {
	s := h.session
	for _, p := range s.Players {
		if p.Nickname == "" {
			p.Nickname = p.DisplayName
		}
	}
	s.AwaitingNickname = 0
	assignKiller(s)
	s.State = StateActive
	if err := e.persist(ctx, s); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("Everyone is in. The game begins!\n")
	for _, p := range s.ActivePlayers() {
		fmt.Fprintf(&b, "* %s\n", p.Name())
	}
	b.WriteString("One of you is the Killer. Any player can call a vote with /vote.")
	e.sendRoom(ctx, s.RoomID, b.String(), nil)

	killer := s.Killer()
	e.sendPrivate(ctx, killer.UserID,
		"You are the Killer. Use these buttons to sow confusion; nobody sees where they come from.",
		e.killerPanel(s))
	e.log.Info("game started",
		zap.Int64("room", s.RoomID), zap.Int("players", s.ActiveCount()))
	return nil
}
